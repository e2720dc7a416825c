package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/breeze-rmm/pkgreconcile/internal/resolvable"
)

// JournaledResolver records every mutating command issued through it.
// Queries pass through unrecorded.
type JournaledResolver struct {
	resolvable.Resolver
	journal *Logger
	runID   string
}

// NewJournaledResolver wraps r and tags every entry with a fresh run ID.
// A nil journal disables recording.
func NewJournaledResolver(r resolvable.Resolver, journal *Logger) *JournaledResolver {
	return &JournaledResolver{
		Resolver: r,
		journal:  journal,
		runID:    uuid.NewString(),
	}
}

// RunID identifies the entries written by this resolver.
func (j *JournaledResolver) RunID() string { return j.runID }

// Start records the beginning of a run.
func (j *JournaledResolver) Start(command string, details map[string]any) {
	d := map[string]any{"command": command}
	for k, v := range details {
		d[k] = v
	}
	j.journal.Log(EventRunStart, j.runID, d)
}

// Stop records the end of a run and its outcome.
func (j *JournaledResolver) Stop(err error) {
	d := map[string]any{"ok": err == nil}
	if err != nil {
		d["error"] = err.Error()
	}
	j.journal.Log(EventRunStop, j.runID, d)
}

// SnapshotWritten records that the resolver state was persisted to path.
func (j *JournaledResolver) SnapshotWritten(path string) {
	j.journal.Log(EventSnapshotWritten, j.runID, map[string]any{"path": path})
}

func (j *JournaledResolver) SelectResolvable(ctx context.Context, name string, kind resolvable.Kind) (bool, error) {
	ok, err := j.Resolver.SelectResolvable(ctx, name, kind)
	j.record(EventSelect, name, kind, ok, err, nil)
	return ok, err
}

func (j *JournaledResolver) RemoveResolvable(ctx context.Context, name string, kind resolvable.Kind) (bool, error) {
	ok, err := j.Resolver.RemoveResolvable(ctx, name, kind)
	j.record(EventRemove, name, kind, ok, err, nil)
	return ok, err
}

func (j *JournaledResolver) SetNeutral(ctx context.Context, name string, kind resolvable.Kind, keepPreviousSoft bool) (bool, error) {
	ok, err := j.Resolver.SetNeutral(ctx, name, kind, keepPreviousSoft)
	j.record(EventNeutral, name, kind, ok, err, map[string]any{"keepPreviousSoft": keepPreviousSoft})
	return ok, err
}

func (j *JournaledResolver) record(event, name string, kind resolvable.Kind, ok bool, err error, extra map[string]any) {
	d := map[string]any{
		"name":     name,
		"kind":     kind.String(),
		"accepted": ok,
	}
	if err != nil {
		d["error"] = err.Error()
	}
	for k, v := range extra {
		d[k] = v
	}
	j.journal.Log(event, j.runID, d)
}
