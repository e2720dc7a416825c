package resolvable

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandLabels  = []string{"command", "kind", "accepted"}
	commandCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pkgreconcile",
		Subsystem: "resolver",
		Name:      "commands_total",
		Help:      "Resolver calls by command, resolvable kind and whether the engine accepted them.",
	}, commandLabels)
	commandTimer = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pkgreconcile",
		Subsystem: "resolver",
		Name:      "command_duration_seconds",
		Help:      "Resolver call duration by command and resolvable kind.",
	}, []string{"command", "kind"})
)

// Instrumented records Prometheus metrics for every call to the wrapped
// resolver.
type Instrumented struct {
	next Resolver
}

var _ Resolver = (*Instrumented)(nil)

// Instrument wraps r with metrics.
func Instrument(r Resolver) *Instrumented {
	return &Instrumented{next: r}
}

func (i *Instrumented) QueryResolvables(ctx context.Context, name string, kind Kind) ([]Record, error) {
	done := observe("query", kind)
	recs, err := i.next.QueryResolvables(ctx, name, kind)
	done(err == nil)
	return recs, err
}

func (i *Instrumented) SelectResolvable(ctx context.Context, name string, kind Kind) (bool, error) {
	done := observe("select", kind)
	ok, err := i.next.SelectResolvable(ctx, name, kind)
	done(ok && err == nil)
	return ok, err
}

func (i *Instrumented) RemoveResolvable(ctx context.Context, name string, kind Kind) (bool, error) {
	done := observe("remove", kind)
	ok, err := i.next.RemoveResolvable(ctx, name, kind)
	done(ok && err == nil)
	return ok, err
}

func (i *Instrumented) SetNeutral(ctx context.Context, name string, kind Kind, keepPreviousSoft bool) (bool, error) {
	done := observe("neutral", kind)
	ok, err := i.next.SetNeutral(ctx, name, kind, keepPreviousSoft)
	done(ok && err == nil)
	return ok, err
}

func observe(command string, kind Kind) func(accepted bool) {
	timer := prometheus.NewTimer(commandTimer.WithLabelValues(command, kind.String()))
	return func(accepted bool) {
		timer.ObserveDuration()
		commandCounter.WithLabelValues(command, kind.String(), strconv.FormatBool(accepted)).Inc()
	}
}
