package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/breeze-rmm/pkgreconcile/internal/audit"
	"github.com/breeze-rmm/pkgreconcile/internal/config"
	"github.com/breeze-rmm/pkgreconcile/internal/logging"
	"github.com/breeze-rmm/pkgreconcile/internal/product"
	"github.com/breeze-rmm/pkgreconcile/internal/report"
	"github.com/breeze-rmm/pkgreconcile/internal/resolvable"
)

// session holds what one command needs: the loaded resolver state, the
// journaled resolver issuing commands against it and the collected reports.
type session struct {
	cfg      *config.Config
	mem      *resolvable.Memory
	resolver *audit.JournaledResolver
	journal  *audit.Logger
	reporter *report.Collector
	catalog  *product.Catalog
	log      *slog.Logger
}

func openSession(command string, stderr io.Writer, details map[string]any) (*session, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if snapshotPath != "" {
		cfg.Snapshot = snapshotPath
	}
	if metricsFile != "" {
		cfg.MetricsPath = metricsFile
	}

	logging.Init(cfg.LogFormat, cfg.LogLevel, stderr)
	result := cfg.ValidateTiered()
	for _, w := range result.Warnings {
		logging.L("config").Warn("config validation", logging.KeyError, w)
	}
	if result.HasFatals() {
		return nil, fmt.Errorf("invalid config: %w", errors.Join(result.Fatals...))
	}

	snap, err := resolvable.LoadSnapshot(cfg.Snapshot)
	if err != nil {
		return nil, err
	}
	mem := resolvable.NewMemory(snap)

	var journal *audit.Logger
	if cfg.AuditPath != "" {
		journal, err = audit.NewLogger(cfg.AuditPath, cfg.AuditMaxSizeMB, cfg.AuditMaxBackups)
		if err != nil {
			return nil, err
		}
	}

	j := audit.NewJournaledResolver(resolvable.Instrument(mem), journal)
	s := &session{
		cfg:      cfg,
		mem:      mem,
		resolver: j,
		journal:  journal,
		reporter: &report.Collector{},
		log:      logging.WithRun(logging.L("cli"), j.RunID()),
	}

	opts := []product.Option{
		product.WithLicenses(mem),
		product.WithLocale(product.EnvLocale{Override: cfg.Language}),
		product.WithInstallationSource(cfg.InstallationSource),
	}
	if cfg.Arch != "" {
		opts = append(opts, product.WithArch(cfg.Arch))
	}
	s.catalog = product.NewCatalog(j, opts...)

	j.Start(command, details)
	s.log.Debug("session opened", "command", command, "snapshot", cfg.Snapshot)
	return s, nil
}

// save writes the resolver state back to the snapshot file.
func (s *session) save() error {
	if err := s.mem.Snapshot().Save(s.cfg.Snapshot); err != nil {
		return err
	}
	s.resolver.SnapshotWritten(s.cfg.Snapshot)
	s.log.Info("snapshot written", "path", s.cfg.Snapshot)
	return nil
}

// close prints the collected messages, ends the journal run, writes the
// metrics file when one is configured and passes err through.
func (s *session) close(w io.Writer, err error) error {
	for _, m := range s.reporter.Messages() {
		switch m.Severity {
		case report.SeverityError:
			fmt.Fprintf(w, "Error: %s\n", m.Text)
		default:
			fmt.Fprintf(w, "Warning (%s): %s\n", m.Level, m.Text)
		}
	}
	s.resolver.Stop(err)
	if cerr := s.journal.Close(); cerr != nil {
		s.log.Warn("closing audit journal", logging.KeyError, cerr)
	}
	if s.cfg.MetricsPath != "" {
		if merr := prometheus.WriteToTextfile(s.cfg.MetricsPath, prometheus.DefaultGatherer); merr != nil {
			s.log.Warn("writing metrics", "path", s.cfg.MetricsPath, logging.KeyError, merr)
		}
	}
	return err
}
