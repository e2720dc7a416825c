package patterns

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/breeze-rmm/pkgreconcile/internal/resolvable"
)

func TestLogSelection(t *testing.T) {
	r := resolvable.NewMemory(&resolvable.Snapshot{Resolvables: []resolvable.Record{
		{Name: "SLES", Kind: resolvable.KindProduct, Version: "12-0", Status: resolvable.StatusSelected, TransactBy: resolvable.ActorAppHigh},
		{Name: "sle-sdk", Kind: resolvable.KindProduct, Status: resolvable.StatusRemoved, TransactBy: resolvable.ActorUser},
		{Name: "base", Kind: resolvable.KindPattern, Status: resolvable.StatusSelected, TransactBy: resolvable.ActorAppLow},
		{Name: "vim", Kind: resolvable.KindPackage, Status: resolvable.StatusSelected, TransactBy: resolvable.ActorSolver},
		{Name: "emacs", Kind: resolvable.KindPackage, Status: resolvable.StatusAvailable, TransactBy: resolvable.ActorUser},
	}})

	var buf bytes.Buffer
	if err := LogSelection(context.Background(), r, slog.New(slog.NewTextHandler(&buf, nil))); err != nil {
		t.Fatalf("LogSelection: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected begin, 3 groups and end, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "transaction status begin") || !strings.Contains(lines[4], "transaction status end") {
		t.Fatalf("missing transaction markers:\n%s", buf.String())
	}

	out := buf.String()
	for _, want := range []string{
		"kind=product actor=user",
		"kind=product actor=app_high",
		"kind=pattern actor=app_low",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "vim") || strings.Contains(out, "emacs") {
		t.Fatalf("solver changes and unchanged resolvables must not be logged:\n%s", out)
	}
}
