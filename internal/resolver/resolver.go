package resolver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/brainnova/brainnova-score/internal/hermes"
	"github.com/brainnova/brainnova-score/internal/metrics"
	"github.com/brainnova/brainnova-score/internal/remote"
	"github.com/brainnova/brainnova-score/internal/scoring"
)

// State is a step of a single resolution. Every resolution starts in
// StateTryRemote and either finishes there or moves once to
// StateLocalFallback, which is terminal.
type State string

const (
	StateTryRemote     State = "try_remote"
	StateLocalFallback State = "local_fallback"
)

// Fallback reasons, used as log fields, metric labels and event payloads.
const (
	ReasonRemoteDisabled  = "remote_disabled"
	ReasonTimeout         = "timeout"
	ReasonUnavailable     = "unavailable"
	ReasonInvalidResponse = "invalid_response"
)

// Computer produces a score from primary data. *scoring.Engine implements it.
type Computer interface {
	Compute(ctx context.Context, req scoring.Request) (*scoring.ScoreResult, error)
}

// Resolver returns one normalized score per request, preferring the remote
// scoring service and recomputing locally when it cannot be used.
type Resolver struct {
	remote  remote.Client
	local   Computer
	hermes  hermes.Client
	metrics *metrics.Metrics
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Resolver. rc and h may be nil: without rc every request is
// computed locally, without h no events are published.
func New(rc remote.Client, local Computer, h hermes.Client, m *metrics.Metrics, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = remote.DefaultTimeout
	}
	return &Resolver{
		remote:  rc,
		local:   local,
		hermes:  h,
		metrics: m,
		timeout: timeout,
		logger:  logger,
	}
}

// Resolve runs the two-state resolution for req. There is no retry and no
// caching; the remote attempt is bounded by the configured timeout. If ctx is
// cancelled the context error is returned and no fallback is started.
func (r *Resolver) Resolve(ctx context.Context, req scoring.Request) (*scoring.ScoreResult, error) {
	req = req.Normalized()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	id := uuid.New().String()
	start := time.Now()

	reason := ReasonRemoteDisabled
	var remoteErr error

	if r.remote != nil {
		r.logger.Debug("requesting remote score", "resolution_id", id, "state", StateTryRemote, "timeout", r.timeout)
		rctx, cancel := context.WithTimeout(ctx, r.timeout)
		result, err := r.remote.RequestScore(rctx, req)
		cancel()
		if err == nil {
			r.metrics.ObserveResolution(string(scoring.SourceRemote), time.Since(start))
			r.publishComputed(id, result, start)
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "resolve score")
		}
		remoteErr = err
		reason = classify(err)
	}

	r.metrics.Fallback(reason)
	r.logFallback(id, StateLocalFallback, reason, req, remoteErr)
	r.publishFallback(id, reason, req, remoteErr)

	result, err := r.local.Compute(ctx, req)
	if err != nil {
		return nil, err
	}
	r.publishComputed(id, result, start)
	return result, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, remote.ErrRemoteInvalidResponse):
		return ReasonInvalidResponse
	case remote.IsTimeout(err):
		return ReasonTimeout
	default:
		return ReasonUnavailable
	}
}

func (r *Resolver) logFallback(id string, state State, reason string, req scoring.Request, remoteErr error) {
	attrs := []any{
		"resolution_id", id,
		"state", state,
		"reason", reason,
		"region", req.Region,
		"period", req.Period,
	}
	if remoteErr != nil {
		attrs = append(attrs, "error", remoteErr)
	}
	if reason == ReasonRemoteDisabled {
		r.logger.Debug("computing score locally", attrs...)
		return
	}
	r.logger.Warn("remote scoring failed, falling back to local computation", attrs...)
}

func (r *Resolver) publishFallback(id, reason string, req scoring.Request, remoteErr error) {
	if r.hermes == nil {
		return
	}
	evt := hermes.ScoreFallbackEvent{
		ResolutionID: id,
		Reason:       reason,
		Region:       req.Region,
		Period:       req.Period,
		Province:     req.Province,
		Sector:       req.Sector,
		Size:         req.Size,
		Timestamp:    time.Now().UTC(),
	}
	if remoteErr != nil {
		evt.Error = remoteErr.Error()
	}
	if err := r.hermes.Publish(hermes.SubjectScoreFallback, evt); err != nil {
		r.logger.Warn("failed to publish fallback event", "resolution_id", id, "error", err)
	}
}

func (r *Resolver) publishComputed(id string, result *scoring.ScoreResult, start time.Time) {
	if r.hermes == nil {
		return
	}
	_ = r.hermes.Publish(hermes.SubjectScoreComputed, hermes.ScoreComputedEvent{
		ResolutionID: id,
		Source:       string(result.Source),
		GlobalScore:  result.GlobalScore,
		Region:       result.Request.Region,
		Period:       result.Request.Period,
		Dimensions:   len(result.Dimensions),
		DurationMs:   time.Since(start).Milliseconds(),
		Timestamp:    time.Now().UTC(),
	})
}
