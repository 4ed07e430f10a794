package store

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pthm/envgen/pkg/schema"
)

// Source is what the Loader reads from. *Store implements it.
type Source interface {
	ListServices(ctx context.Context) ([]schema.Service, error)
	ListVariables(ctx context.Context, serviceID string) ([]schema.Variable, error)
}

// DefaultConcurrency bounds the number of variable fetches in flight.
const DefaultConcurrency = 8

// LoadFailure records why one service's variables could not be loaded.
type LoadFailure struct {
	ServiceID string
	Err       error
}

// LoadReport lists the services whose variables failed to load. Failures
// are in caller order.
type LoadReport struct {
	Failures []LoadFailure
}

// OK reports whether every service loaded.
func (r *LoadReport) OK() bool { return r == nil || len(r.Failures) == 0 }

// FailedIDs returns the IDs of the services that failed, for retrying.
func (r *LoadReport) FailedIDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		ids[i] = f.ServiceID
	}
	return ids
}

// Err joins every failure into one error, or returns nil.
func (r *LoadReport) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = errors.Wrapf(f.Err, "service %q", f.ServiceID)
	}
	return errors.Join(errs...)
}

// Loader assembles a schema.Model by fetching each service's variables
// concurrently.
type Loader struct {
	src         Source
	concurrency int
	attempts    uint
	delay       time.Duration
	logger      *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConcurrency bounds the number of fetches in flight.
func WithConcurrency(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithRetry retries each failing fetch up to attempts times in total.
func WithRetry(attempts uint, delay time.Duration) LoaderOption {
	return func(l *Loader) {
		if attempts > 0 {
			l.attempts = attempts
			l.delay = delay
		}
	}
}

// WithLoaderLogger sets the logger. The default discards everything.
func WithLoaderLogger(lg *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// NewLoader returns a Loader reading from src.
func NewLoader(src Source, opts ...LoaderOption) *Loader {
	l := &Loader{
		src:         src,
		concurrency: DefaultConcurrency,
		attempts:    1,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadModel returns a model holding the requested services, in the order
// given, with their variables. An empty serviceIDs loads every service.
//
// Fetches settle independently: one failing service neither cancels nor
// fails the others. A failed service keeps its record in the model with no
// variables and is listed in the report. Unknown IDs are reported as
// ErrServiceNotFound. The error return is reserved for failing to list the
// services at all.
func (l *Loader) LoadModel(ctx context.Context, serviceIDs []string) (*schema.Model, *LoadReport, error) {
	all, err := l.src.ListServices(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(serviceIDs) == 0 {
		serviceIDs = make([]string, len(all))
		for i, svc := range all {
			serviceIDs[i] = svc.ID
		}
	}

	byID := make(map[string]schema.Service, len(all))
	for _, svc := range all {
		byID[svc.ID] = svc
	}

	// Slot i belongs to serviceIDs[i]; goroutines never share a slot.
	vars := make([][]schema.Variable, len(serviceIDs))
	errs := make([]error, len(serviceIDs))

	var g errgroup.Group
	g.SetLimit(l.concurrency)
	for i, id := range serviceIDs {
		if _, ok := byID[id]; !ok {
			errs[i] = errors.Wrapf(ErrServiceNotFound, "%q", id)
			continue
		}
		g.Go(func() error {
			vars[i], errs[i] = l.fetch(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	m := &schema.Model{Variables: make(map[string][]schema.Variable, len(serviceIDs))}
	report := &LoadReport{}
	for i, id := range serviceIDs {
		if svc, ok := byID[id]; ok {
			m.Services = append(m.Services, svc)
		}
		if errs[i] != nil {
			report.Failures = append(report.Failures, LoadFailure{ServiceID: id, Err: errs[i]})
			l.logger.Warn("loading variables failed", zap.String("service_id", id), zap.Error(errs[i]))
			continue
		}
		m.Variables[id] = vars[i]
	}

	l.logger.Debug("model loaded",
		zap.Int("services", len(m.Services)),
		zap.Int("failed", len(report.Failures)),
	)
	return m, report, nil
}

func (l *Loader) fetch(ctx context.Context, serviceID string) ([]schema.Variable, error) {
	return retry.DoWithData(
		func() ([]schema.Variable, error) {
			return l.src.ListVariables(ctx, serviceID)
		},
		retry.Context(ctx),
		retry.Attempts(l.attempts),
		retry.Delay(l.delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			l.logger.Debug("retrying variable fetch",
				zap.String("service_id", serviceID),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
}
