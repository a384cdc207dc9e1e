package secretscope

import (
	"context"
	goerrors "errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/blueberrycongee/secretscope/internal/artifact"
	"github.com/blueberrycongee/secretscope/internal/metrics"
	"github.com/blueberrycongee/secretscope/internal/observability"
	"github.com/blueberrycongee/secretscope/pkg/errors"
)

// Binding is the only state a wrapped action can observe: the ordered
// artifact paths, surfaced as one joinable environment value. It never
// exposes secret payloads.
type Binding struct {
	paths  []string
	envKey string
	sep    string
}

// Paths returns the artifact paths in request order.
func (b Binding) Paths() []string {
	out := make([]string, len(b.paths))
	copy(out, b.paths)
	return out
}

// Value returns the artifact paths joined with the configured separator.
func (b Binding) Value() string {
	return strings.Join(b.paths, b.sep)
}

// EnvKey returns the environment variable name the binding is exported under.
func (b Binding) EnvKey() string {
	return b.envKey
}

// Environ returns the binding as a single KEY=value environment entry,
// suitable for appending to a subprocess environment.
func (b Binding) Environ() []string {
	if len(b.paths) == 0 {
		return nil
	}
	return []string{b.envKey + "=" + b.Value()}
}

// Action is a caller-supplied function invoked with the session binding.
// Its result and failure pass through Run unmodified.
type Action[T any] func(ctx context.Context, binding Binding) (T, error)

// Session fetches secrets, materializes them for a bounded scope, and
// guarantees artifact removal on every exit path. Sessions are safe for
// concurrent use; each Run owns its artifacts exclusively.
type Session struct {
	source   Source
	cfg      *SessionConfig
	logger   *observability.Logger
	redactor *observability.Redactor
	tracer   trace.Tracer
}

// New creates a Session over the given source.
func New(src Source, opts ...Option) (*Session, error) {
	if src == nil {
		return nil, errors.NewInvalidRequestError("a secret source is required")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	base := cfg.Logger
	if base == nil {
		base = slog.Default()
	}
	redactor := observability.NewRedactor()

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(observability.TracerName)
	}

	return &Session{
		source:   src,
		cfg:      cfg,
		logger:   observability.WrapLogger(base, redactor),
		redactor: redactor,
		tracer:   tracer,
	}, nil
}

// Run resolves names in order, materializes each payload as an ephemeral
// file, invokes action with the resulting binding, and deletes every
// artifact before returning. The action's result or failure is returned
// unchanged; cleanup failures surface only through the session's cleanup
// observer and logs.
func Run[T any](ctx context.Context, s *Session, names []string, action Action[T]) (T, error) {
	var zero T

	if s == nil {
		return zero, errors.NewInvalidRequestError("nil session")
	}
	if len(names) == 0 {
		metrics.SessionsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return zero, errors.NewInvalidRequestError("at least one secret name is required")
	}
	if action == nil {
		metrics.SessionsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return zero, errors.NewInvalidRequestError("an action is required")
	}

	ctx, sessionID := observability.GetOrCreateSessionID(ctx)
	logger := s.logger.WithSessionID(ctx)
	start := time.Now()

	ctx, span := observability.StartSessionSpan(ctx, s.tracer, "secretscope.run",
		observability.SessionSpanAttributes{SessionID: sessionID, SecretCount: len(names)})
	defer span.End()

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	binding, release, err := s.acquire(ctx, names, logger)
	if err != nil {
		observability.RecordError(span, err)
		s.recordOutcome(outcomeFor(err), start)
		return zero, err
	}

	// release is idempotent; the deferred call makes cleanup structurally
	// guaranteed even if the action panics.
	defer release()

	logger.RedactedDebug("session materialized", "artifact_count", len(binding.paths))

	result, actionErr := action(ctx, binding)

	report := release()
	warnings := 0
	if !report.Empty() {
		warnings = len(report.Warnings)
	}
	observability.RecordSessionOutcome(span, len(binding.paths), warnings, time.Since(start))

	if actionErr != nil {
		observability.RecordError(span, actionErr)
		s.recordOutcome(metrics.OutcomeActionErr, start)
		return result, actionErr
	}

	s.recordOutcome(metrics.OutcomeSuccess, start)
	return result, nil
}

// Do runs an error-only action. It is a convenience wrapper over Run.
func (s *Session) Do(ctx context.Context, names []string, action func(ctx context.Context, binding Binding) error) error {
	_, err := Run(ctx, s, names, func(ctx context.Context, binding Binding) (struct{}, error) {
		return struct{}{}, action(ctx, binding)
	})
	return err
}

// acquire fetches and materializes every name in order. On any failure it
// sweeps whatever was already written before returning the error, so the
// caller never observes partial state. The returned release function sweeps
// all artifacts; it is idempotent and never fails the session.
func (s *Session) acquire(ctx context.Context, names []string, logger *observability.Logger) (Binding, func() *errors.CleanupReport, error) {
	store, err := artifact.NewStore(s.cfg.ScratchDir)
	if err != nil {
		return Binding{}, nil, errors.NewArtifactWriteError("", err)
	}

	var primed []string
	released := false
	release := func() *errors.CleanupReport {
		if released {
			return &errors.CleanupReport{}
		}
		released = true
		report := store.Sweep()
		s.redactor.Unprime(primed...)
		if !report.Empty() {
			metrics.CleanupFailuresTotal.Add(float64(len(report.Warnings)))
			logger.RedactedWarn("artifact cleanup incomplete",
				"warnings", len(report.Warnings), "detail", report.Error())
			if s.cfg.CleanupObserver != nil {
				s.cfg.CleanupObserver(report)
			}
		}
		return report
	}

	ok := false
	defer func() {
		if !ok {
			release()
		}
	}()

	for _, name := range names {
		fetchStart := time.Now()
		recs, err := s.source.Fetch(ctx, []string{name})
		if err != nil {
			return Binding{}, nil, asResolutionError(name, err)
		}
		rec, found := recs[name]
		if !found {
			return Binding{}, nil, errors.NewResolutionError(name, "",
				goerrors.New("source returned no record for requested name"))
		}
		metrics.FetchDuration.WithLabelValues(rec.Scheme).Observe(time.Since(fetchStart).Seconds())

		if strings.TrimSpace(rec.Payload) == "" {
			return Binding{}, nil, errors.NewEmptySecretError(name, rec.Scheme)
		}

		// Primed before the payload touches disk, so even a write failure
		// cannot leak it through error logs.
		s.redactor.Prime(rec.Payload)
		primed = append(primed, rec.Payload)

		if _, err := store.Write(rec.Payload); err != nil {
			return Binding{}, nil, errors.NewArtifactWriteError(name, err)
		}
		metrics.ArtifactsCreatedTotal.Inc()
		metrics.SecretsResolvedTotal.WithLabelValues(rec.Scheme).Inc()
	}

	ok = true
	return Binding{
		paths:  store.Paths(),
		envKey: s.cfg.EnvKey,
		sep:    s.cfg.Separator,
	}, release, nil
}

func (s *Session) recordOutcome(outcome string, start time.Time) {
	metrics.SessionsTotal.WithLabelValues(outcome).Inc()
	metrics.SessionDuration.Observe(time.Since(start).Seconds())
}

// asResolutionError preserves typed source errors and wraps anything else a
// custom Source implementation may return.
func asResolutionError(name string, err error) error {
	var se *errors.SecretError
	if goerrors.As(err, &se) {
		return err
	}
	return errors.NewResolutionError(name, "", err)
}

func outcomeFor(err error) string {
	switch {
	case errors.IsResolution(err):
		return metrics.OutcomeResolution
	case errors.IsEmptySecret(err):
		return metrics.OutcomeEmpty
	case errors.IsArtifactWrite(err):
		return metrics.OutcomeWrite
	default:
		return metrics.OutcomeInvalid
	}
}
