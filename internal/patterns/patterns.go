// Package patterns selects software patterns for installation.
package patterns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sahilm/fuzzy"

	"github.com/breeze-rmm/pkgreconcile/internal/logging"
	"github.com/breeze-rmm/pkgreconcile/internal/resolvable"
)

var decisionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pkgreconcile",
	Subsystem: "patterns",
	Name:      "decisions_total",
	Help:      "Pattern selection decisions by outcome.",
}, []string{"outcome"})

// Action is what the controller does with one pattern.
type Action int

const (
	// ActionSkip leaves a pattern the user decided about alone.
	ActionSkip Action = iota
	// ActionInstall selects a pattern that is not selected yet.
	ActionInstall
	// ActionReinstate selects a pattern that is already selected.
	ActionReinstate
	// ActionKeep counts a pattern already selected by the application
	// as reinstated without calling the resolver again.
	ActionKeep
)

func (a Action) String() string {
	switch a {
	case ActionInstall:
		return "install"
	case ActionReinstate:
		return "reinstate"
	case ActionKeep:
		return "keep"
	default:
		return "skip"
	}
}

// Decide returns the action for a pattern whose current resolver state is
// status, last changed by actor. Installed patterns are handled like
// selected ones.
//
// Without reselect every user decision is honored. With reselect a user
// selection is applied again while a user deselection is not protected:
// reselect restores the application's selection after a resolver reset.
func Decide(status resolvable.Status, actor resolvable.Actor, reselect bool) Action {
	if status.Present() {
		switch {
		case reselect:
			return ActionReinstate
		case actor == resolvable.ActorUser:
			return ActionSkip
		case actor.Application():
			return ActionKeep
		default:
			return ActionReinstate
		}
	}
	if actor == resolvable.ActorUser && !reselect {
		return ActionSkip
	}
	return ActionInstall
}

// Report summarizes one selection run.
type Report struct {
	Installed        int
	Reinstated       int
	Skipped          int
	Failed           []string
	MissingMandatory []string
	MissingOptional  []string
}

// MissingError reports a mandatory pattern the resolver does not know.
type MissingError struct {
	Name       string
	Suggestion string
}

func (e *MissingError) Error() string {
	msg := fmt.Sprintf("Pattern %s does not exist.", e.Name)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" Did you mean %s?", e.Suggestion)
	}
	return msg
}

// SelectError reports a select request the resolver rejected.
type SelectError struct {
	Name string
	Kind resolvable.Kind
}

func (e *SelectError) Error() string {
	return fmt.Sprintf("Failed to select %s %s.", e.Kind, e.Name)
}

// Controller selects patterns through a resolver.
type Controller struct {
	resolver resolvable.Resolver
	reporter resolvable.Reporter
	log      *slog.Logger
}

// NewController returns a controller issuing commands to r and reporting
// user visible problems to rep.
func NewController(r resolvable.Resolver, rep resolvable.Reporter) *Controller {
	return &Controller{
		resolver: r,
		reporter: rep,
		log:      logging.L("patterns"),
	}
}

// WithLogger replaces the controller's logger.
func (c *Controller) WithLogger(l *slog.Logger) *Controller {
	c.log = l
	return c
}

type run struct {
	*Controller
	reselect bool
	known    []string
	report   Report
	errs     []error
}

// Select makes sure the required and optional patterns are selected.
// Each distinct name is processed once; a name listed as both required and
// optional is required.
//
// Missing and rejected patterns do not stop the run: they are reported,
// listed in the Report and joined into the returned error. A resolver call
// that fails outright aborts the run; nothing applied so far is rolled back.
func (c *Controller) Select(ctx context.Context, required, optional []string, reselect bool) (Report, error) {
	r := &run{Controller: c, reselect: reselect}
	c.log.Info("selecting system patterns", "required", required, "optional", optional, "reselect", reselect)

	seen := make(map[string]bool)
	for _, list := range []struct {
		names     []string
		mandatory bool
	}{{required, true}, {optional, false}} {
		for _, name := range list.names {
			name = strings.TrimSpace(name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			if err := r.process(ctx, name, list.mandatory); err != nil {
				return r.report, errors.Join(append(r.errs, err)...)
			}
		}
	}

	c.log.Info("pattern selection finished",
		"installed", r.report.Installed,
		"reinstated", r.report.Reinstated,
		"skipped", r.report.Skipped,
		"failed", len(r.report.Failed),
		"missing", len(r.report.MissingMandatory))
	return r.report, errors.Join(r.errs...)
}

func (r *run) process(ctx context.Context, name string, mandatory bool) error {
	recs, err := r.resolver.QueryResolvables(ctx, name, resolvable.KindPattern)
	if err != nil {
		return fmt.Errorf("query pattern %s: %w", name, err)
	}
	if len(recs) == 0 {
		return r.missing(ctx, name, mandatory)
	}

	cur := current(recs)
	action := Decide(cur.Status, cur.TransactBy, r.reselect)
	r.log.Debug("pattern decision", logging.KeyName, name,
		"status", cur.Status.String(), "transactBy", cur.TransactBy.String(), "action", action.String())

	switch action {
	case ActionSkip:
		r.log.Info("skipping pattern changed by user", logging.KeyName, name, "status", cur.Status.String())
		r.report.Skipped++
		decisionCounter.WithLabelValues("skipped").Inc()
		return nil
	case ActionKeep:
		r.report.Reinstated++
		decisionCounter.WithLabelValues("reinstated").Inc()
		return nil
	}

	ok, err := r.resolver.SelectResolvable(ctx, name, resolvable.KindPattern)
	if err != nil {
		return fmt.Errorf("select pattern %s: %w", name, err)
	}
	if !ok {
		serr := &SelectError{Name: name, Kind: resolvable.KindPattern}
		r.reporter.Error(serr.Error())
		r.report.Failed = append(r.report.Failed, name)
		r.errs = append(r.errs, serr)
		decisionCounter.WithLabelValues("failed").Inc()
		return nil
	}

	if action == ActionReinstate {
		r.report.Reinstated++
		decisionCounter.WithLabelValues("reinstated").Inc()
	} else {
		r.report.Installed++
		decisionCounter.WithLabelValues("installed").Inc()
	}
	return nil
}

func (r *run) missing(ctx context.Context, name string, mandatory bool) error {
	if !mandatory {
		r.log.Info("optional pattern does not exist", logging.KeyName, name)
		r.report.MissingOptional = append(r.report.MissingOptional, name)
		decisionCounter.WithLabelValues("missing_optional").Inc()
		return nil
	}

	suggestion, err := r.suggest(ctx, name)
	if err != nil {
		return err
	}
	merr := &MissingError{Name: name, Suggestion: suggestion}
	r.reporter.Error(merr.Error())
	r.report.MissingMandatory = append(r.report.MissingMandatory, name)
	r.errs = append(r.errs, merr)
	decisionCounter.WithLabelValues("missing").Inc()
	return nil
}

// suggest returns the known pattern name closest to name, if any.
func (r *run) suggest(ctx context.Context, name string) (string, error) {
	if r.known == nil {
		recs, err := r.resolver.QueryResolvables(ctx, "", resolvable.KindPattern)
		if err != nil {
			return "", fmt.Errorf("query patterns: %w", err)
		}
		r.known = make([]string, 0, len(recs))
		seen := make(map[string]bool)
		for _, rec := range recs {
			if !seen[rec.Name] {
				seen[rec.Name] = true
				r.known = append(r.known, rec.Name)
			}
		}
	}
	matches := fuzzy.Find(name, r.known)
	if len(matches) == 0 {
		return "", nil
	}
	return matches[0].Str, nil
}

// current returns the record deciding a pattern's state: a selected or
// installed record if there is one, otherwise the first.
func current(recs []resolvable.Record) resolvable.Record {
	for _, rec := range recs {
		if rec.Status.Present() {
			return rec
		}
	}
	return recs[0]
}

// ParseList splits a whitespace separated pattern list as found in control
// files.
func ParseList(s string) []string {
	return strings.Fields(s)
}
