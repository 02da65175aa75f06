package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"bell24h-workers/internal/common/logger"
	"bell24h-workers/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const DefaultExternalTimeout = 5 * time.Second

var (
	ErrProviderPanic    = errors.New("external provider panicked")
	ErrUnknownCandidate = errors.New("external result references unknown candidate")
	ErrDuplicateResult  = errors.New("external result lists a candidate twice")
	ErrScoreOutOfRange  = errors.New("external result score out of range")
)

// Provider is an external matching service. It may return results in any
// order; the Matcher decides whether to trust them.
type Provider interface {
	Name() string
	Match(ctx context.Context, req models.MatchRequest, candidates []models.Candidate) ([]models.ScoredCandidate, error)
}

type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeEmpty    Outcome = "empty"
	OutcomeError    Outcome = "error"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeRejected Outcome = "rejected"
	OutcomeDisabled Outcome = "disabled"
)

// Recorder receives one event per ranking call.
type Recorder interface {
	RecordExternalOutcome(provider string, outcome Outcome)
	RecordResults(source models.MatchSource, count int)
}

type nopRecorder struct{}

func (nopRecorder) RecordExternalOutcome(string, Outcome) {}
func (nopRecorder) RecordResults(models.MatchSource, int) {}

// Recorders fans every event out to each of rs.
func Recorders(rs ...Recorder) Recorder {
	return multiRecorder(rs)
}

type multiRecorder []Recorder

func (m multiRecorder) RecordExternalOutcome(provider string, outcome Outcome) {
	for _, r := range m {
		r.RecordExternalOutcome(provider, outcome)
	}
}

func (m multiRecorder) RecordResults(source models.MatchSource, count int) {
	for _, r := range m {
		r.RecordResults(source, count)
	}
}

type Config struct {
	ExternalTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{ExternalTimeout: DefaultExternalTimeout}
}

// Result is a ranked list plus where it came from.
type Result struct {
	Suppliers []models.ScoredCandidate
	Source    models.MatchSource
	Outcome   Outcome
}

// Matcher holds no per-call state and is safe for concurrent use.
type Matcher struct {
	cfg      Config
	provider Provider
	logger   logger.Logger
	recorder Recorder
	tracer   trace.Tracer
}

type Option func(*Matcher)

func WithProvider(p Provider) Option {
	return func(m *Matcher) { m.provider = p }
}

func WithRecorder(r Recorder) Option {
	return func(m *Matcher) {
		if r != nil {
			m.recorder = r
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(m *Matcher) {
		if t != nil {
			m.tracer = t
		}
	}
}

func NewMatcher(cfg Config, log logger.Logger, opts ...Option) *Matcher {
	if cfg.ExternalTimeout <= 0 {
		cfg.ExternalTimeout = DefaultExternalTimeout
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	m := &Matcher{
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "matcher"}),
		recorder: nopRecorder{},
		tracer:   otel.Tracer("bell24h-workers/matching"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RankCandidates never fails and never returns nil.
func (m *Matcher) RankCandidates(ctx context.Context, req models.MatchRequest, candidates []models.Candidate) []models.ScoredCandidate {
	return m.Rank(ctx, req, candidates).Suppliers
}

// Rank tries the external provider once and falls back to local scoring
// when it errors, times out, returns nothing, or returns an invalid list.
func (m *Matcher) Rank(ctx context.Context, req models.MatchRequest, candidates []models.Candidate) Result {
	ctx, span := m.tracer.Start(ctx, "matching.Matcher.Rank")
	defer span.End()
	span.SetAttributes(
		attribute.Int("match.candidates", len(candidates)),
		attribute.String("match.category", req.IndustryOrCategory),
	)

	providerName := "none"
	if m.provider != nil {
		providerName = m.provider.Name()
	}

	outcome := OutcomeDisabled
	if m.provider != nil {
		external, err := m.callExternal(ctx, req, candidates)
		outcome = classify(external, err)
		if outcome == OutcomeSuccess {
			if err = validateExternal(external, candidates); err != nil {
				outcome = OutcomeRejected
			}
		}

		m.recorder.RecordExternalOutcome(providerName, outcome)
		if outcome == OutcomeSuccess {
			m.logger.Debug("external match accepted", map[string]interface{}{
				"provider":       providerName,
				"resultCount":    len(external),
				"rfqId":          req.RFQID,
				"candidateCount": len(candidates),
			})
			m.recorder.RecordResults(models.MatchSourceExternal, len(external))
			span.SetAttributes(attribute.String("match.source", string(models.MatchSourceExternal)))
			return Result{Suppliers: external, Source: models.MatchSourceExternal, Outcome: outcome}
		}

		fields := map[string]interface{}{
			"provider":       providerName,
			"reason":         string(outcome),
			"rfqId":          req.RFQID,
			"candidateCount": len(candidates),
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		m.logger.Warn("external match fallback", fields)
	} else {
		m.recorder.RecordExternalOutcome(providerName, outcome)
	}

	local := Rank(req, candidates)
	m.recorder.RecordResults(models.MatchSourceLocal, len(local))
	span.SetAttributes(
		attribute.String("match.source", string(models.MatchSourceLocal)),
		attribute.String("match.external_outcome", string(outcome)),
	)
	return Result{Suppliers: local, Source: models.MatchSourceLocal, Outcome: outcome}
}

type externalResult struct {
	scored []models.ScoredCandidate
	err    error
}

// callExternal makes at most one provider call bounded by the configured
// timeout. A late answer is dropped.
func (m *Matcher) callExternal(ctx context.Context, req models.MatchRequest, candidates []models.Candidate) ([]models.ScoredCandidate, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.cfg.ExternalTimeout)
	defer cancel()

	done := make(chan externalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- externalResult{err: fmt.Errorf("%w: %v", ErrProviderPanic, r)}
			}
		}()
		scored, err := m.provider.Match(callCtx, req, candidates)
		done <- externalResult{scored: scored, err: err}
	}()

	select {
	case res := <-done:
		return res.scored, res.err
	case <-callCtx.Done():
		return nil, callCtx.Err()
	}
}

func classify(scored []models.ScoredCandidate, err error) Outcome {
	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case err != nil:
		return OutcomeError
	case len(scored) == 0:
		return OutcomeEmpty
	}
	return OutcomeSuccess
}

// validateExternal checks that every result refers to an input candidate
// exactly once and carries a score in (0, MaxScore].
func validateExternal(scored []models.ScoredCandidate, candidates []models.Candidate) error {
	known := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		known[c.ID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(scored))
	for _, sc := range scored {
		id := sc.Candidate.ID
		if _, ok := known[id]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCandidate, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateResult, id)
		}
		seen[id] = struct{}{}

		if math.IsNaN(sc.Score) || math.IsInf(sc.Score, 0) || sc.Score <= 0 || sc.Score > MaxScore {
			return fmt.Errorf("%w: %q scored %v", ErrScoreOutOfRange, id, sc.Score)
		}
	}
	return nil
}
