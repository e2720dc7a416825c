package product

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/breeze-rmm/pkgreconcile/internal/resolvable"
)

var baseAttrs = Product{
	Name:     "openSUSE",
	Version:  "20160405",
	Arch:     "x86_64",
	Category: "addon",
	Vendor:   "openSUSE",
}

type fixedLocale string

func (l fixedLocale) Language() string { return string(l) }

func newTestCatalog(t *testing.T, recs ...resolvable.Record) (*Catalog, *resolvable.Memory) {
	t.Helper()
	mem := resolvable.NewMemory(&resolvable.Snapshot{
		Resolvables: recs,
		Licenses: map[string]map[string]string{
			"openSUSE": {"en_US": "license content", "de_DE": "Lizenz"},
		},
		LicenseConfirmationRequired: []string{"openSUSE"},
	})
	cat := NewCatalog(mem, WithLicenses(mem), WithLocale(fixedLocale("de_DE")), WithArch("x86_64"))
	return cat, mem
}

func productRecord(status resolvable.Status) resolvable.Record {
	return resolvable.Record{
		Name:    baseAttrs.Name,
		Kind:    resolvable.KindProduct,
		Version: baseAttrs.Version,
		Arch:    baseAttrs.Arch,
		Vendor:  baseAttrs.Vendor,
		Status:  status,
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name  string
		other func(p Product) Product
		want  bool
	}{
		{"identical", func(p Product) Product { return p }, true},
		{"display name ignored", func(p Product) Product { p.DisplayName = "Other"; p.Category = "base"; return p }, true},
		{"name differs", func(p Product) Product { p.Name = "other"; return p }, false},
		{"version differs", func(p Product) Product { p.Version = "20160409"; return p }, false},
		{"arch differs", func(p Product) Product { p.Arch = "i586"; return p }, false},
		{"vendor differs", func(p Product) Product { p.Vendor = "SUSE"; return p }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := baseAttrs.Equal(tt.other(baseAttrs)); got != tt.want {
				t.Fatalf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		p    Product
		want string
	}{
		{Product{Name: "NAME", DisplayName: "DISPLAY", ShortName: "SHORT"}, "DISPLAY"},
		{Product{Name: "NAME", ShortName: "SHORT"}, "SHORT"},
		{Product{Name: "NAME"}, "NAME"},
	}
	for _, tt := range tests {
		if got := tt.p.Label(); got != tt.want {
			t.Errorf("Label() = %q, want %q", got, tt.want)
		}
	}
}

func TestStatusQueriesAreLive(t *testing.T) {
	ctx := context.Background()
	cat, mem := newTestCatalog(t, productRecord(resolvable.StatusAvailable))

	all, err := cat.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	p := all[0]

	if selected, _ := p.Selected(ctx); selected {
		t.Fatal("product should not be selected yet")
	}

	if ok, err := mem.SelectResolvable(ctx, p.Name, resolvable.KindProduct); !ok || err != nil {
		t.Fatalf("select: %v %v", ok, err)
	}

	selected, err := p.Selected(ctx)
	if err != nil || !selected {
		t.Fatalf("Selected() = %v, %v; want true", selected, err)
	}
	if st, _ := p.Status(ctx); st != resolvable.StatusSelected {
		t.Fatalf("Status() = %v", st)
	}
	if actor, _ := p.TransactBy(ctx); actor != resolvable.ActorAppHigh {
		t.Fatalf("TransactBy() = %v", actor)
	}
}

func TestHasStatus(t *testing.T) {
	ctx := context.Background()
	cat, _ := newTestCatalog(t, productRecord(resolvable.StatusRemoved), productRecord(resolvable.StatusSelected))
	p, _ := cat.All(ctx)

	if ok, _ := p[0].HasStatus(ctx, resolvable.StatusInstalled, resolvable.StatusSelected); !ok {
		t.Fatal("expected a selected record")
	}
	if ok, _ := p[0].HasStatus(ctx, resolvable.StatusInstalled); ok {
		t.Fatal("no record is installed")
	}
	if ok, _ := p[0].Installed(ctx); ok {
		t.Fatal("Installed() should be false")
	}
}

func TestSelectAndRestore(t *testing.T) {
	ctx := context.Background()
	cat, _ := newTestCatalog(t, productRecord(resolvable.StatusAvailable))
	all, _ := cat.All(ctx)
	p := all[0]

	if err := p.Select(ctx); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if st, _ := p.Status(ctx); st != resolvable.StatusSelected {
		t.Fatalf("Status() after select = %v", st)
	}
	if err := p.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if st, _ := p.Status(ctx); st != resolvable.StatusAvailable {
		t.Fatalf("Status() after restore = %v", st)
	}
}

func TestDetachedProduct(t *testing.T) {
	ctx := context.Background()
	p := FromRecord(productRecord(resolvable.StatusSelected))

	if _, err := p.Selected(ctx); !errors.Is(err, ErrDetached) {
		t.Fatalf("Selected() error = %v, want ErrDetached", err)
	}
	if err := p.Select(ctx); !errors.Is(err, ErrDetached) {
		t.Fatalf("Select() error = %v, want ErrDetached", err)
	}
	if _, found := p.License("en_US"); found {
		t.Fatal("detached product has no license store")
	}
}

func TestLicense(t *testing.T) {
	ctx := context.Background()
	cat, _ := newTestCatalog(t, productRecord(resolvable.StatusAvailable), resolvable.Record{
		Name: "SLED", Kind: resolvable.KindProduct, Status: resolvable.StatusAvailable,
	})
	all, _ := cat.All(ctx)
	opensuse, sled := all[0], all[1]

	if text, found := opensuse.License("en_US"); !found || text != "license content" {
		t.Fatalf("License(en_US) = %q, %v", text, found)
	}
	if text, _ := opensuse.License(""); text != "Lizenz" {
		t.Fatalf("License() should use the current language, got %q", text)
	}
	if !opensuse.HasLicense("en_US") {
		t.Fatal("HasLicense() should be true")
	}
	if sled.HasLicense("en_US") {
		t.Fatal("product without license text has no license")
	}
	if !opensuse.LicenseConfirmationRequired() || sled.LicenseConfirmationRequired() {
		t.Fatal("unexpected confirmation requirement")
	}

	opensuse.ConfirmLicense(true)
	if !opensuse.LicenseConfirmed() {
		t.Fatal("license should be confirmed")
	}
	opensuse.ConfirmLicense(false)
	if opensuse.LicenseConfirmed() {
		t.Fatal("license should not be confirmed")
	}
}

func TestCatalogWithStatus(t *testing.T) {
	ctx := context.Background()
	sles := resolvable.Record{Name: "SLES", Kind: resolvable.KindProduct, Status: resolvable.StatusInstalled}
	sdk := resolvable.Record{Name: "sle-sdk", Kind: resolvable.KindProduct, Status: resolvable.StatusAvailable}
	cat, _ := newTestCatalog(t, sles, sdk)

	got, err := cat.WithStatus(ctx, resolvable.StatusInstalled)
	if err != nil {
		t.Fatalf("WithStatus: %v", err)
	}
	if diff := cmp.Diff([]Product{FromRecord(sles)}, got); diff != "" {
		t.Fatalf("WithStatus mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalogAvailableBase(t *testing.T) {
	ctx := context.Background()
	base := func(name, version, arch string, source int) resolvable.Record {
		return resolvable.Record{
			Name: name, Kind: resolvable.KindProduct, Version: version, Arch: arch,
			Category: "base", Source: source, Status: resolvable.StatusAvailable,
		}
	}
	addon := resolvable.Record{Name: "sle-ha", Kind: resolvable.KindProduct, Category: "addon", Status: resolvable.StatusAvailable}

	cat, _ := newTestCatalog(t,
		base("SLES", "15-0", "x86_64", 0),
		base("SLES", "15.1-0", "x86_64", 0),
		base("SLES", "15.9-0", "x86_64", 2),
		base("SLES_SAP", "15-0", "aarch64", 0),
		base("SLED", "15-0", "noarch", 0),
		addon,
	)

	got, err := cat.AvailableBase(ctx)
	if err != nil {
		t.Fatalf("AvailableBase: %v", err)
	}
	want := []Product{
		FromRecord(base("SLES", "15.1-0", "x86_64", 0)),
		FromRecord(base("SLED", "15-0", "noarch", 0)),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("AvailableBase mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalogAvailableBaseEmpty(t *testing.T) {
	cat, _ := newTestCatalog(t)
	got, err := cat.AvailableBase(context.Background())
	if err != nil {
		t.Fatalf("AvailableBase: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no products, got %v", got)
	}
}

func TestCatalogSelectedBase(t *testing.T) {
	ctx := context.Background()
	notSelected := resolvable.Record{Name: "SLED", Kind: resolvable.KindProduct, Category: "base", Status: resolvable.StatusAvailable}
	selected := resolvable.Record{Name: "SLES", Kind: resolvable.KindProduct, Category: "base", Status: resolvable.StatusSelected}
	cat, _ := newTestCatalog(t, notSelected, selected)

	p, ok, err := cat.SelectedBase(ctx)
	if err != nil || !ok {
		t.Fatalf("SelectedBase = %v, %v", ok, err)
	}
	if p.Name != "SLES" {
		t.Fatalf("SelectedBase = %s, want SLES", p.Name)
	}
}

func TestCompareVersion(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"12-0", "11.3-1.138", 1},
		{"15.1-0", "15.1-0", 0},
		{"15-0", "15.1-0", -1},
	}
	for _, tt := range tests {
		if got := CompareVersion(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareVersion(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCanonical(t *testing.T) {
	tests := map[string]string{
		"de_DE.UTF-8":    "de_DE",
		"pt-br":          "pt_BR",
		"cs":             "cs",
		"sr_RS@latin":    "sr_RS",
		"":               "",
		"not a locale!!": "not a locale!!",
	}
	for in, want := range tests {
		if got := Canonical(in); got != want {
			t.Errorf("Canonical(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnvLocale(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "C")
	if got := (EnvLocale{}).Language(); got != DefaultLanguage {
		t.Fatalf("Language() = %q, want default", got)
	}

	t.Setenv("LANG", "fr_FR.UTF-8")
	if got := (EnvLocale{}).Language(); got != "fr_FR" {
		t.Fatalf("Language() = %q, want fr_FR", got)
	}
	if got := (EnvLocale{Override: "ja_JP"}).Language(); got != "ja_JP" {
		t.Fatalf("Language() = %q, want override", got)
	}
}
