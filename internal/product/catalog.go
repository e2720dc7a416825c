package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/breeze-rmm/pkgreconcile/internal/logging"
	"github.com/breeze-rmm/pkgreconcile/internal/resolvable"
)

var log = logging.L("product")

// CategoryBase marks products that can be installed on their own.
const CategoryBase = "base"

// Catalog reads products from a resolver and binds them to it.
type Catalog struct {
	resolver           resolvable.Resolver
	licenses           resolvable.Licenses
	locale             Locale
	installationSource int
	arch               string
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLicenses sets the license store used by the license queries.
func WithLicenses(l resolvable.Licenses) Option {
	return func(c *Catalog) { c.licenses = l }
}

// WithLocale sets the source of the default license language.
func WithLocale(l Locale) Option {
	return func(c *Catalog) { c.locale = l }
}

// WithInstallationSource sets the repository ID base products must come from.
func WithInstallationSource(id int) Option {
	return func(c *Catalog) { c.installationSource = id }
}

// WithArch overrides the detected machine architecture.
func WithArch(arch string) Option {
	return func(c *Catalog) { c.arch = arch }
}

// NewCatalog returns a catalog over r. Without WithArch the kernel
// architecture of the running host is used.
func NewCatalog(r resolvable.Resolver, opts ...Option) *Catalog {
	c := &Catalog{
		resolver: r,
		locale:   EnvLocale{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.arch == "" {
		arch, err := host.KernelArch()
		if err != nil {
			log.Warn("cannot detect machine architecture, not filtering base products", logging.KeyError, err)
		}
		c.arch = arch
	}
	return c
}

// Arch returns the architecture base products are filtered by.
func (c *Catalog) Arch() string { return c.arch }

func (c *Catalog) bind(r resolvable.Record) Product {
	p := FromRecord(r)
	p.cat = c
	return p
}

func (c *Catalog) query(ctx context.Context) ([]resolvable.Record, error) {
	recs, err := c.resolver.QueryResolvables(ctx, "", resolvable.KindProduct)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	return recs, nil
}

// All returns every product the resolver knows, in resolver order.
func (c *Catalog) All(ctx context.Context) ([]Product, error) {
	recs, err := c.query(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(recs))
	for _, r := range recs {
		out = append(out, c.bind(r))
	}
	return out, nil
}

// WithStatus returns the products for which any resolver record has one of
// the given statuses.
func (c *Catalog) WithStatus(ctx context.Context, statuses ...resolvable.Status) ([]Product, error) {
	recs, err := c.query(ctx)
	if err != nil {
		return nil, err
	}

	matching := make(map[string]bool)
	for _, r := range recs {
		for _, s := range statuses {
			if r.Status == s {
				matching[r.Name] = true
			}
		}
	}

	var out []Product
	for _, r := range recs {
		if matching[r.Name] {
			out = append(out, c.bind(r))
		}
	}
	return out, nil
}

// AvailableBase returns the base products offered by the installation
// source for this machine. When several versions of a product are offered
// only the newest is returned.
func (c *Catalog) AvailableBase(ctx context.Context) ([]Product, error) {
	recs, err := c.query(ctx)
	if err != nil {
		return nil, err
	}

	var out []Product
	index := make(map[string]int)
	for _, r := range recs {
		if !strings.EqualFold(r.Category, CategoryBase) || r.Source != c.installationSource || !c.archCompatible(r.Arch) {
			continue
		}
		if i, ok := index[r.Name]; ok {
			if CompareVersion(r.Version, out[i].Version) > 0 {
				out[i] = c.bind(r)
			}
			continue
		}
		index[r.Name] = len(out)
		out = append(out, c.bind(r))
	}

	log.Debug("available base products", "count", len(out), "arch", c.arch)
	return out, nil
}

// SelectedBase returns the available base product selected for
// installation, if any.
func (c *Catalog) SelectedBase(ctx context.Context) (Product, bool, error) {
	base, err := c.AvailableBase(ctx)
	if err != nil {
		return Product{}, false, err
	}
	for _, p := range base {
		selected, err := p.Selected(ctx)
		if err != nil {
			return Product{}, false, err
		}
		if selected {
			return p, true, nil
		}
	}
	return Product{}, false, nil
}

func (c *Catalog) archCompatible(arch string) bool {
	switch {
	case c.arch == "", arch == "", arch == "noarch":
		return true
	default:
		return arch == c.arch
	}
}
