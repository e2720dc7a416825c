package report

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/breeze-rmm/pkgreconcile/internal/resolvable"
)

func TestCollectorKeepsOrder(t *testing.T) {
	var c Collector
	c.Error("Pattern p1 does not exist.")
	c.Warning("SDK will be removed", resolvable.LevelAttention)
	c.Error("Pattern p2 does not exist.")

	want := []Message{
		{Severity: SeverityError, Level: resolvable.LevelAttention, Text: "Pattern p1 does not exist."},
		{Severity: SeverityWarning, Level: resolvable.LevelAttention, Text: "SDK will be removed"},
		{Severity: SeverityError, Level: resolvable.LevelAttention, Text: "Pattern p2 does not exist."},
	}
	if diff := cmp.Diff(want, c.Messages()); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if got := c.Errors(); len(got) != 2 {
		t.Fatalf("Errors() = %v, want 2 entries", got)
	}
}
