package nvcf

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"dino-video-labeler/internal/config"
	"dino-video-labeler/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

// Compile-time assurance the client satisfies the ports
var (
	_ adapter.ObjectDetector = (*Client)(nil)
	_ adapter.AssetUploader  = (*Client)(nil)
)

const (
	headerInputAssetRefs   = "NVCF-INPUT-ASSET-REFERENCES"
	headerFunctionAssetIDs = "NVCF-FUNCTION-ASSET-IDS"
	headerRequestID        = "NVCF-REQID"
	headerAssetDescription = "x-amz-meta-nvcf-asset-description"

	// longest vendor body kept in error values
	maxErrorBody = 2048
)

// Options configures a Client. APIKey is required; all other zero values
// fall back to the NVCF defaults in config.
type Options struct {
	APIKey       string
	AssetsURL    string
	InferenceURL string
	StatusURL    string
	Model        string
	Threshold    float64
	ContentType  string
	Description  string

	AllocateTimeout time.Duration
	UploadTimeout   time.Duration
	RequestTimeout  time.Duration
	PollDelay       time.Duration
	MaxRetries      int

	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// OptionsFromConfig maps the nvcf config block onto Options.
func OptionsFromConfig(c config.NVCFConfig) Options {
	return Options{
		APIKey:          c.APIKey,
		AssetsURL:       c.AssetsURL,
		InferenceURL:    c.InferenceURL,
		StatusURL:       c.StatusURL,
		Model:           c.Model,
		Threshold:       c.Threshold,
		ContentType:     c.ContentType,
		Description:     c.Description,
		AllocateTimeout: c.AllocateTimeout,
		UploadTimeout:   c.UploadTimeout,
		RequestTimeout:  c.RequestTimeout,
		PollDelay:       c.PollDelay,
		MaxRetries:      c.MaxRetries,
	}
}

// Client talks to NVIDIA Cloud Functions: asset upload, Grounding DINO
// submission and pexec status polling.
// Authorization: Bearer <NVCF_API_KEY> on every call except the pre-signed PUT.
type Client struct {
	opts   Options
	http   *http.Client
	poller adapter.StatusPoller
	log    *zerolog.Logger
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("nvcf api key empty")
	}
	if opts.AssetsURL == "" {
		opts.AssetsURL = "https://api.nvcf.nvidia.com/v2/nvcf/assets"
	}
	if opts.InferenceURL == "" {
		opts.InferenceURL = "https://ai.api.nvidia.com/v1/cv/nvidia/nv-grounding-dino"
	}
	if opts.StatusURL == "" {
		opts.StatusURL = "https://api.nvcf.nvidia.com/v2/nvcf/pexec/status/"
	}
	if !strings.HasSuffix(opts.StatusURL, "/") {
		opts.StatusURL += "/"
	}
	if opts.Model == "" {
		opts.Model = "Grounding-Dino"
	}
	if opts.Threshold == 0 {
		opts.Threshold = 0.3
	}
	if opts.ContentType == "" {
		opts.ContentType = "video/mp4"
	}
	if opts.Description == "" {
		opts.Description = "Input Video"
	}
	if opts.AllocateTimeout <= 0 {
		opts.AllocateTimeout = 60 * time.Second
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 300 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 120 * time.Second
	}
	if opts.PollDelay <= 0 {
		opts.PollDelay = 2 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 10
	}
	hc := opts.HTTPClient
	if hc == nil {
		// per-call deadlines come from contexts
		hc = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	c := &Client{opts: opts, http: hc, log: logger}
	c.poller = NewPoller(PollerOptions{
		APIKey:         opts.APIKey,
		Delay:          opts.PollDelay,
		MaxAttempts:    opts.MaxRetries,
		RequestTimeout: opts.RequestTimeout,
		HTTPClient:     hc,
		Logger:         logger,
	})
	return c, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
}

func (c *Client) pollURL(requestID string) string {
	return c.opts.StatusURL + requestID
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}

func isSuccess(code int) bool { return code >= 200 && code < 300 }
