package api

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"time"

	"dino-video-labeler/internal/domain"
	"dino-video-labeler/internal/domain/model"
	"dino-video-labeler/internal/domain/ports/adapter"
	"dino-video-labeler/internal/infra/logging"
	"dino-video-labeler/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// multipart parts above this stay on disk while parsing
const formMemory = 32 << 20

type Options struct {
	MaxUploadBytes int64
	RateLimit      int
	RateWindow     time.Duration
	// LabelTimeout bounds one label request end to end. Zero means no bound
	// beyond the client's own.
	LabelTimeout time.Duration
}

// Server exposes the labeling use case over HTTP.
type Server struct {
	uc      usecase.LabelingUseCase
	limiter adapter.RateLimiter
	opts    Options
	log     *zerolog.Logger
}

func NewServer(uc usecase.LabelingUseCase, limiter adapter.RateLimiter, opts Options, logger *zerolog.Logger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 512 << 20
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	return &Server{uc: uc, limiter: limiter, opts: opts, log: logger}
}

// Handler builds the full router with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return Chain(r, Recover(s.log), TraceID(), RequestLog(s.log))
}

func (s *Server) Register(r chi.Router) {
	r.Get("/", s.handleIndex)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	label := Chain(http.HandlerFunc(s.handleLabel),
		RateLimit(s.limiter, s.opts.RateLimit, s.opts.RateWindow, s.log))
	if s.opts.LabelTimeout > 0 {
		label = Chain(label, Timeout(s.opts.LabelTimeout))
	}
	r.Method(http.MethodPost, "/api/v1/labels", label)
	r.Get("/api/v1/labels/{id}/archive", s.handleArchive)
	r.Get("/api/v1/labels/{id}/video", s.handleVideo)
	r.Get("/api/v1/labels/{id}/entries", s.handleEntries)
}

type labelResponse struct {
	ID         string   `json:"id"`
	Entries    []string `json:"entries"`
	VideoName  string   `json:"video_name"`
	VideoURL   string   `json:"video_url"`
	ArchiveURL string   `json:"archive_url"`
	Polled     bool     `json:"polled"`
	Attempts   int      `json:"attempts,omitempty"`
}

func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	l := logging.With(r.Context(), s.log)

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	in, err := readLabelInput(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
				Error:   string(domain.OutcomeInvalidInput),
				Message: domain.OutcomeInvalidInput.Message(),
				Detail:  fmt.Sprintf("upload exceeds %d bytes", s.opts.MaxUploadBytes),
			})
			return
		}
		s.fail(w, nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err))
		return
	}

	run, err := s.uc.Label(r.Context(), in)
	if err != nil {
		l.Warn().Err(err).Msg("label request failed")
		s.fail(w, run, err)
		return
	}
	writeJSON(w, http.StatusOK, labelResponse{
		ID:         run.ID,
		Entries:    run.Entries,
		VideoName:  run.VideoName,
		VideoURL:   "/api/v1/labels/" + run.ID + "/video",
		ArchiveURL: "/api/v1/labels/" + run.ID + "/archive",
		Polled:     run.Polled,
		Attempts:   run.Attempts,
	})
}

func readLabelInput(r *http.Request) (usecase.LabelInput, error) {
	if err := r.ParseMultipartForm(formMemory); err != nil {
		return usecase.LabelInput{}, err
	}
	f, hdr, err := r.FormFile("video")
	if err != nil {
		return usecase.LabelInput{}, fmt.Errorf("video file: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return usecase.LabelInput{}, err
	}
	return usecase.LabelInput{
		Prompt:   r.FormValue("prompt"),
		Filename: hdr.Filename,
		Video:    data,
	}, nil
}

func (s *Server) fail(w http.ResponseWriter, run *model.LabelingRun, err error) {
	o := domain.Classify(err)
	body := errorBody{Error: string(o), Message: o.Message()}
	if o != domain.OutcomeInternal {
		body.Detail = err.Error()
	}
	if run != nil {
		body.RunID = run.ID
		body.Entries = run.Entries
	}
	writeJSON(w, statusFor(o), body)
}

func statusFor(o domain.Outcome) int {
	switch o {
	case domain.OutcomeInvalidInput:
		return http.StatusBadRequest
	case domain.OutcomeRateLimited:
		return http.StatusTooManyRequests
	case domain.OutcomeRequestFailed:
		return http.StatusBadGateway
	case domain.OutcomeTimedOut:
		return http.StatusGatewayTimeout
	case domain.OutcomeNoVideo:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := s.uc.Archive(r.Context(), id)
	if err != nil {
		s.notFoundOr500(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".zip"))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	data, err := s.uc.Video(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.notFoundOr500(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	names, err := s.uc.Entries(r.Context(), id)
	if err != nil {
		s.notFoundOr500(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		ID      string   `json:"id"`
		Entries []string `json:"entries"`
	}{ID: id, Entries: names})
}

func (s *Server) notFoundOr500(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "No such labeling run."})
		return
	}
	l := logging.With(r.Context(), s.log)
	l.Error().Err(err).Msg("artifact read failed")
	writeError(w, http.StatusInternalServerError, domain.OutcomeInternal)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = page.Execute(w, struct{ MaxMB int64 }{MaxMB: s.opts.MaxUploadBytes >> 20})
}

var page = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>Grounding DINO video labeling</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:720px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.fail{color:#b00020}
.btn{display:inline-block;margin-top:16px;padding:10px 16px;border-radius:8px;border:1px solid #888;text-decoration:none;background:none;cursor:pointer}
.small{font-size:12px;color:#666}
video{max-width:100%;margin-top:16px}
</style>
</head>
<body>
<div class="card">
  <h2>Label a video</h2>
  <form id="f">
    <p><input type="file" name="video" accept=".mp4,.avi,.mov" required /></p>
    <p><input type="text" name="prompt" placeholder="e.g. person . car" size="48" required /></p>
    <button class="btn" type="submit">Run detection</button>
    <div class="small">mp4, avi or mov, up to {{.MaxMB}} MB. Processing can take several minutes.</div>
  </form>
  <div id="out"></div>
</div>
<script>
document.getElementById("f").addEventListener("submit", async (e) => {
  e.preventDefault();
  const out = document.getElementById("out");
  out.textContent = "Processing...";
  const res = await fetch("/api/v1/labels", {method: "POST", body: new FormData(e.target)});
  const body = await res.json();
  out.replaceChildren();
  if (!res.ok) {
    const p = document.createElement("p");
    p.className = "fail";
    p.textContent = body.message;
    out.append(p);
    if (body.entries) {
      const pre = document.createElement("pre");
      pre.textContent = body.entries.join("\n");
      out.append(pre);
    }
    return;
  }
  const pre = document.createElement("pre");
  pre.textContent = body.entries.join("\n");
  const v = document.createElement("video");
  v.controls = true;
  v.src = body.video_url;
  const a = document.createElement("a");
  a.className = "btn";
  a.href = body.archive_url;
  a.textContent = "Download results";
  out.append(pre, v, a);
});
</script>
</body>
</html>`))
