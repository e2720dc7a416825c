// Package product models the software products known to the resolver.
//
// A Product is a value read from the resolver at one point in time. Its
// transaction state is never cached: Status, Selected and friends ask the
// resolver every time, and Select/Restore are requests to the resolver
// rather than changes to the value.
package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/breeze-rmm/pkgreconcile/internal/resolvable"
)

// ErrDetached is returned by live queries on a Product that was not read
// through a Catalog.
var ErrDetached = errors.New("product is not attached to a catalog")

// Product is one known software product.
type Product struct {
	Name        string
	Version     string
	Arch        string
	Vendor      string
	Category    string
	DisplayName string
	ShortName   string
	Source      int

	cat *Catalog
}

// FromRecord builds a detached Product from a resolver record.
func FromRecord(r resolvable.Record) Product {
	return Product{
		Name:        r.Name,
		Version:     r.Version,
		Arch:        r.Arch,
		Vendor:      r.Vendor,
		Category:    r.Category,
		DisplayName: r.DisplayName,
		ShortName:   r.ShortName,
		Source:      r.Source,
	}
}

// Label returns the display name, falling back to the short name and then
// the name.
func (p Product) Label() string {
	return resolvable.Label(p.DisplayName, p.ShortName, p.Name)
}

// Equal reports whether p and o identify the same product: name, version,
// arch and vendor must match.
func (p Product) Equal(o Product) bool {
	return p.Name == o.Name &&
		p.Version == o.Version &&
		p.Arch == o.Arch &&
		p.Vendor == o.Vendor
}

func (p Product) String() string {
	return fmt.Sprintf("%s-%s.%s", p.Name, p.Version, p.Arch)
}

func (p Product) records(ctx context.Context) ([]resolvable.Record, error) {
	if p.cat == nil {
		return nil, ErrDetached
	}
	recs, err := p.cat.resolver.QueryResolvables(ctx, p.Name, resolvable.KindProduct)
	if err != nil {
		return nil, fmt.Errorf("query product %s: %w", p.Name, err)
	}
	return recs, nil
}

// current picks the record describing p: the one with the same version and
// arch when present, otherwise the first one for the name.
func (p Product) current(ctx context.Context) (resolvable.Record, bool, error) {
	recs, err := p.records(ctx)
	if err != nil || len(recs) == 0 {
		return resolvable.Record{}, false, err
	}
	for _, r := range recs {
		if r.Version == p.Version && r.Arch == p.Arch {
			return r, true, nil
		}
	}
	return recs[0], true, nil
}

// Status returns the current transaction status, StatusNone when the
// resolver no longer knows the product.
func (p Product) Status(ctx context.Context) (resolvable.Status, error) {
	r, ok, err := p.current(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return resolvable.StatusNone, nil
	}
	return r.Status, nil
}

// TransactBy returns who last changed the product status.
func (p Product) TransactBy(ctx context.Context) (resolvable.Actor, error) {
	r, ok, err := p.current(ctx)
	if err != nil || !ok {
		return resolvable.ActorNone, err
	}
	return r.TransactBy, nil
}

// HasStatus reports whether any resolver record for the product name has
// one of the given statuses.
func (p Product) HasStatus(ctx context.Context, statuses ...resolvable.Status) (bool, error) {
	recs, err := p.records(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range recs {
		for _, s := range statuses {
			if r.Status == s {
				return true, nil
			}
		}
	}
	return false, nil
}

// Selected reports whether the resolver has the product selected for
// installation.
func (p Product) Selected(ctx context.Context) (bool, error) {
	return p.HasStatus(ctx, resolvable.StatusSelected)
}

// Installed reports whether the product is installed and stays installed.
func (p Product) Installed(ctx context.Context) (bool, error) {
	return p.HasStatus(ctx, resolvable.StatusInstalled)
}

// Select asks the resolver to install the product.
func (p Product) Select(ctx context.Context) error {
	if p.cat == nil {
		return ErrDetached
	}
	ok, err := p.cat.resolver.SelectResolvable(ctx, p.Name, resolvable.KindProduct)
	if err != nil {
		return fmt.Errorf("select product %s: %w", p.Name, err)
	}
	if !ok {
		return fmt.Errorf("resolver rejected selecting product %s", p.Name)
	}
	return nil
}

// Restore asks the resolver to put the product back to its state before
// the transaction, keeping soft locks.
func (p Product) Restore(ctx context.Context) error {
	if p.cat == nil {
		return ErrDetached
	}
	ok, err := p.cat.resolver.SetNeutral(ctx, p.Name, resolvable.KindProduct, true)
	if err != nil {
		return fmt.Errorf("restore product %s: %w", p.Name, err)
	}
	if !ok {
		return fmt.Errorf("resolver rejected restoring product %s", p.Name)
	}
	return nil
}

// License returns the license text to confirm in lang, or in the current
// language when lang is empty. found is false when the license store does
// not know the product.
func (p Product) License(lang string) (text string, found bool) {
	if p.cat == nil || p.cat.licenses == nil {
		return "", false
	}
	if lang == "" {
		lang = p.cat.locale.Language()
	}
	return p.cat.licenses.LicenseText(p.Name, lang)
}

// HasLicense reports whether there is a non-empty license to show.
func (p Product) HasLicense(lang string) bool {
	text, _ := p.License(lang)
	return text != ""
}

// LicenseConfirmationRequired reports whether the license has to be
// confirmed before the product can be installed.
func (p Product) LicenseConfirmationRequired() bool {
	if p.cat == nil || p.cat.licenses == nil {
		return false
	}
	return p.cat.licenses.ConfirmationRequired(p.Name)
}

// ConfirmLicense marks the license as confirmed or not confirmed.
func (p Product) ConfirmLicense(confirmed bool) {
	if p.cat == nil || p.cat.licenses == nil {
		return
	}
	p.cat.licenses.Confirm(p.Name, confirmed)
}

// LicenseConfirmed reports whether the license was confirmed.
func (p Product) LicenseConfirmed() bool {
	if p.cat == nil || p.cat.licenses == nil {
		return false
	}
	return p.cat.licenses.Confirmed(p.Name)
}
