package patterns

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/breeze-rmm/pkgreconcile/internal/resolvable"
)

// loggedActors are the actors whose changes LogSelection reports. Solver
// changes follow from them and are left out.
var loggedActors = []resolvable.Actor{resolvable.ActorUser, resolvable.ActorAppHigh, resolvable.ActorAppLow}

// Change is a resolvable changed in the pending transaction.
type Change struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Arch    string `json:"arch,omitempty"`
	Status  string `json:"status"`
}

// LogSelection logs every resolvable whose transaction status was set by
// the user or the application, grouped by kind and actor.
func LogSelection(ctx context.Context, r resolvable.Resolver, log *slog.Logger) error {
	log.Info("transaction status begin")

	for _, kind := range resolvable.Kinds() {
		recs, err := r.QueryResolvables(ctx, "", kind)
		if err != nil {
			return fmt.Errorf("query %s resolvables: %w", kind, err)
		}

		for _, actor := range loggedActors {
			var changes []Change
			for _, rec := range recs {
				if rec.TransactBy != actor || !changed(rec.Status) {
					continue
				}
				changes = append(changes, Change{
					Name:    rec.Name,
					Version: rec.Version,
					Arch:    rec.Arch,
					Status:  rec.Status.String(),
				})
			}
			if len(changes) == 0 {
				continue
			}
			log.Info("resolvables set by actor",
				"kind", kind.String(),
				"actor", actor.String(),
				"resolvables", changes)
		}
	}

	log.Info("transaction status end")
	return nil
}

func changed(s resolvable.Status) bool {
	return s == resolvable.StatusSelected || s == resolvable.StatusRemoved
}
