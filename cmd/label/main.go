// Command label runs a single detection pass from the shell.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"dino-video-labeler/internal/application"
	"dino-video-labeler/internal/config"
	"dino-video-labeler/internal/infra/logging"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	videoPath := flag.String("video", "", "video file to label (mp4, avi, mov)")
	prompt := flag.String("prompt", "", "objects to detect, e.g. \"person . car\"")
	devMode := flag.Bool("dev", false, "console logs at debug level")
	flag.Parse()

	os.Exit(run(*cfgPath, *videoPath, *prompt, *devMode))
}

func run(cfgPath, videoPath, prompt string, dev bool) int {
	if videoPath == "" || prompt == "" {
		fmt.Fprintln(os.Stderr, "usage: label -video in.mp4 -prompt \"cars\" [-config config.yaml]")
		return 2
	}
	cfg, err := config.LoadConfig(cfgPath, dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	video, err := os.ReadFile(videoPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read video: %v\n", err)
		return 1
	}
	labeler, err := application.NewLabeler(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, _, err := labeler.HandleLabel(ctx, prompt, filepath.Base(videoPath), video)
	if err != nil {
		fmt.Fprint(os.Stderr, report)
		return application.ExitCode(err)
	}
	fmt.Print(report)
	return 0
}
