// Package productstatus classifies the products of a pending transaction
// into new, kept, removed and updated products.
package productstatus

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/breeze-rmm/pkgreconcile/internal/logging"
	"github.com/breeze-rmm/pkgreconcile/internal/resolvable"
)

var log = logging.L("productstatus")

// Update pairs a product going away with the product replacing it.
type Update struct {
	Old resolvable.Record
	New resolvable.Record
}

// Classification groups products by what the transaction does to them.
// The groups are disjoint.
type Classification struct {
	New     []resolvable.Record
	Kept    []resolvable.Record
	Removed []resolvable.Record
	Updated []Update
}

// ValidationError describes an input record that was skipped.
type ValidationError struct {
	Index  int
	Record resolvable.Record
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("product record %d (%q): %s", e.Index, e.Record.Name, e.Reason)
}

// Warning is raised when products are removed without the user asking for
// it. The zero Warning means there is nothing to warn about.
type Warning struct {
	Level    resolvable.Level
	Message  string
	Products []string
}

func (w Warning) Empty() bool { return w.Message == "" }

// Result is the outcome of Resolve.
type Result struct {
	Classification
	Summary []string
	Warning Warning
	Invalid []*ValidationError
}

// Err joins the validation errors, or returns nil.
func (r Result) Err() error {
	errs := make([]error, 0, len(r.Invalid))
	for _, e := range r.Invalid {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

// Publish reports every validation error and the warning, if any.
func (r Result) Publish(rep resolvable.Reporter) {
	for _, e := range r.Invalid {
		rep.Error(e.Error())
	}
	if !r.Warning.Empty() {
		rep.Warning(r.Warning.Message, r.Warning.Level)
	}
}

// Resolve classifies records, then builds the summary and warning.
// Invalid records are skipped and listed in Result.Invalid.
func Resolve(records []resolvable.Record) Result {
	c, invalid := Classify(records)
	return Result{
		Classification: c,
		Summary:        c.Summary(),
		Warning:        c.Warning(),
		Invalid:        invalid,
	}
}

// Classify groups records by status. A removed product is paired with a
// product staying on the system when their normalized names match; among
// several candidates one from the same vendor wins, then input order.
// Records that are neither going away nor present after the transaction
// (available, none) are not part of it and are ignored.
func Classify(records []resolvable.Record) (Classification, []*ValidationError) {
	var (
		invalid   []*ValidationError
		goingAway []resolvable.Record
		staying   []resolvable.Record
	)

	for i, r := range records {
		if err := validate(i, r); err != nil {
			log.Warn("skipping invalid product record", "index", i, logging.KeyError, err)
			invalid = append(invalid, err)
			continue
		}
		switch {
		case r.Status.GoingAway():
			goingAway = append(goingAway, r)
		case r.Status.Present():
			staying = append(staying, r)
		}
	}

	keys := make([]string, len(staying))
	for i, s := range staying {
		keys[i] = normalize(s.Name)
	}

	var c Classification
	paired := make([]bool, len(staying))
	for _, g := range goingAway {
		i := successor(g, normalize(g.Name), staying, keys, paired)
		if i < 0 {
			c.Removed = append(c.Removed, g)
			continue
		}
		paired[i] = true
		log.Debug("product update detected", "old", g.Name, "new", staying[i].Name)
		c.Updated = append(c.Updated, Update{Old: g, New: staying[i]})
	}

	for i, s := range staying {
		if paired[i] {
			continue
		}
		if s.Status == resolvable.StatusInstalled {
			c.Kept = append(c.Kept, s)
		} else {
			c.New = append(c.New, s)
		}
	}
	return c, invalid
}

func successor(g resolvable.Record, key string, staying []resolvable.Record, keys []string, paired []bool) int {
	first := -1
	for i, s := range staying {
		if paired[i] || keys[i] != key {
			continue
		}
		if s.Vendor == g.Vendor {
			return i
		}
		if first < 0 {
			first = i
		}
	}
	return first
}

func validate(i int, r resolvable.Record) *ValidationError {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return &ValidationError{Index: i, Record: r, Reason: "missing name"}
	case !r.Status.Valid():
		return &ValidationError{Index: i, Record: r, Reason: "missing or unknown status"}
	}
	return nil
}

// normalize case folds name and drops everything but letters and digits, so
// renames such as "sle-haegeo" to "sle-ha-geo" compare equal.
func normalize(name string) string {
	folded := cases.Fold().String(name)
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, folded)
}

// Summary describes the updates and removals as human readable sentences.
func (c Classification) Summary() []string {
	out := make([]string, 0, len(c.Updated)+len(c.Removed))
	for _, u := range c.Updated {
		out = append(out, fmt.Sprintf("%s will be updated to %s", u.Old.Label(), u.New.Label()))
	}
	for _, r := range c.Removed {
		out = append(out, fmt.Sprintf("%s will be automatically removed.", r.Label()))
	}
	return out
}

// Warning lists the removed products the user did not ask to remove.
func (c Classification) Warning() Warning {
	var labels []string
	for _, r := range c.Removed {
		if r.TransactBy != resolvable.ActorUser {
			labels = append(labels, r.Label())
		}
	}
	if len(labels) == 0 {
		return Warning{}
	}
	return Warning{
		Level: resolvable.LevelAttention,
		Message: fmt.Sprintf("No update was found for the following products, they will be removed: %s",
			strings.Join(labels, ", ")),
		Products: labels,
	}
}
