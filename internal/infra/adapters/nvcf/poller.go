package nvcf

import (
	"context"
	"io"
	"net/http"
	"time"

	"dino-video-labeler/internal/domain"
	"dino-video-labeler/internal/domain/model"
	"dino-video-labeler/internal/domain/ports/adapter"
	"dino-video-labeler/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ adapter.StatusPoller = (*Poller)(nil)

type PollerOptions struct {
	APIKey         string
	Delay          time.Duration // wait before every attempt
	MaxAttempts    int
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Logger         *zerolog.Logger
}

// Poller checks the pexec status endpoint on a fixed delay with a fixed
// attempt budget. No backoff.
type Poller struct {
	opts PollerOptions
	http *http.Client
	log  *zerolog.Logger
}

func NewPoller(opts PollerOptions) *Poller {
	if opts.Delay <= 0 {
		opts.Delay = 2 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 120 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Poller{opts: opts, http: hc, log: logger}
}

// Poll drives handle to a terminal state. The returned PollResult is always
// populated; the error is derived from it: nil for Ready,
// *domain.PollingTimeoutError for TimedOut, *domain.PollingFailedError for Failed.
func (p *Poller) Poll(ctx context.Context, handle model.PollHandle) (model.PollResult, error) {
	res, cause := p.run(ctx, handle)
	metrics.ObservePoll(string(res.State), res.Attempts)

	switch res.State {
	case model.PollReady:
		return res, nil
	case model.PollTimedOut:
		p.log.Warn().Str("request_id", handle.RequestID).Int("attempts", res.Attempts).Msg("timeout: result not ready in time")
		return res, &domain.PollingTimeoutError{RequestID: handle.RequestID, Attempts: res.Attempts}
	default:
		p.log.Warn().Str("request_id", handle.RequestID).Int("status", res.LastStatus).Int("attempt", res.Attempts).Msg("unexpected poll status")
		return res, &domain.PollingFailedError{
			RequestID:  handle.RequestID,
			StatusCode: res.LastStatus,
			Attempt:    res.Attempts,
			Body:       res.Body,
			Err:        cause,
		}
	}
}

// run is the state machine. It never fails on its own; cause is only set
// when the loop ended Failed because of a transport or context error.
func (p *Poller) run(ctx context.Context, handle model.PollHandle) (res model.PollResult, cause error) {
	res.State = model.PollPending
	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		if err := sleep(ctx, p.opts.Delay); err != nil {
			res.State = model.PollFailed
			return res, err
		}
		res.Attempts = attempt

		status, body, err := p.check(ctx, handle)
		res.LastStatus = status
		if err != nil {
			res.State = model.PollFailed
			return res, err
		}
		switch status {
		case http.StatusOK:
			res.State = model.PollReady
			res.Archive = body
			return res, nil
		case http.StatusAccepted:
			p.log.Debug().Str("request_id", handle.RequestID).Int("attempt", attempt).Msg("still processing")
		default:
			res.State = model.PollFailed
			res.Body = truncate(body)
			return res, nil
		}
	}
	res.State = model.PollTimedOut
	return res, nil
}

func (p *Poller) check(ctx context.Context, handle model.PollHandle) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, handle.URL, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.opts.APIKey)

	start := time.Now()
	resp, err := p.http.Do(req)
	if err != nil {
		metrics.ObserveCall(metrics.StagePoll, 0, time.Since(start), false)
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	ok := err == nil && (resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted)
	metrics.ObserveCall(metrics.StagePoll, resp.StatusCode, time.Since(start), ok)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
