// Package exporter drives a batch export: it loads folder groups, resolves
// every work item ID and writes the successes folder by folder.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fjglira/tfs-testcase-exporter/internal/config"
	"github.com/fjglira/tfs-testcase-exporter/internal/domain"
	"github.com/fjglira/tfs-testcase-exporter/internal/source"
	"github.com/fjglira/tfs-testcase-exporter/internal/writer"
)

// LockFileName is created in the output root while an export is running.
const LockFileName = ".tcexport.lock"

const (
	lockTimeout   = 5 * time.Second
	lockRetryWait = 100 * time.Millisecond
)

// TestCaseResolver resolves a single work item into a TestCase.
type TestCaseResolver interface {
	ResolveTestCase(ctx context.Context, id int) (*domain.TestCase, error)
}

// Exporter is the top-level orchestrator.
type Exporter interface {
	Export(ctx context.Context) (*Summary, error)
}

// Summary reports the outcome of an export run.
type Summary struct {
	RunID         string
	Folders       int
	Written       int // test cases written
	Skipped       int // work items that are not Test Cases
	Failed        int // work items that could not be resolved
	WriteFailures int // folders whose output could not be written
	Files         []string
}

// Option configures a DefaultExporter.
type Option func(*DefaultExporter)

// WithFolders restricts the export to the named folders.
func WithFolders(names ...string) Option {
	return func(e *DefaultExporter) {
		e.folders = append(e.folders, names...)
	}
}

// DefaultExporter implements Exporter by wiring all components together.
type DefaultExporter struct {
	cfg      config.Config
	loader   source.Loader
	resolver TestCaseResolver
	writer   writer.Writer
	log      *logrus.Logger
	folders  []string
}

// NewExporter creates a new DefaultExporter. The configuration is copied; later
// changes to cfg do not affect the exporter.
func NewExporter(
	cfg config.Config,
	l source.Loader,
	r TestCaseResolver,
	w writer.Writer,
	log *logrus.Logger,
	opts ...Option,
) *DefaultExporter {
	e := &DefaultExporter{
		cfg:      cfg,
		loader:   l,
		resolver: r,
		writer:   w,
		log:      log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export runs the full pipeline: load → lock → resolve → partition → write.
// Per work item and per folder write failures are logged and counted; only
// source, lock and context errors abort the run. Write errors are joined and
// returned once every folder has been attempted.
func (e *DefaultExporter) Export(ctx context.Context) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString()}
	log := e.log.WithField("run", summary.RunID)

	groups, err := e.loader.Load(&e.cfg)
	if err != nil {
		return summary, err
	}
	groups, unknown := source.Filter(groups, e.folders)
	if len(unknown) > 0 {
		return summary, domain.NewErrorWithSuggestion("config", "", 0,
			fmt.Sprintf("unknown folder(s): %s", strings.Join(unknown, ", ")),
			"check the --folder names against the configured folders",
			domain.ErrConfig)
	}
	if len(groups) == 0 {
		log.Warn("Nothing to export")
		return summary, nil
	}

	if !e.cfg.DryRun && e.cfg.Output.Lock {
		unlock, err := e.lock(ctx)
		if err != nil {
			return summary, err
		}
		defer unlock()
	}

	var (
		combined  []domain.TestCase
		writeErrs []error
	)
	for _, g := range groups {
		log.Infof("Exporting folder %s (%d work item(s))", g.Name, len(g.IDs))

		results, err := e.resolveAll(ctx, g.IDs)
		if err != nil {
			return summary, err
		}

		cases, failed := domain.Partition(results)
		e.report(log, failed, summary)
		summary.Folders++
		summary.Written += len(cases)

		if e.cfg.Output.SingleFile {
			combined = append(combined, cases...)
			continue
		}
		files, err := e.writer.WriteFolder(g.Name, cases)
		summary.Files = append(summary.Files, files...)
		if err != nil {
			log.WithField("folder", g.Name).Errorf("Failed to write folder %s: %v", g.Name, err)
			summary.WriteFailures++
			writeErrs = append(writeErrs, err)
		}
	}

	if e.cfg.Output.SingleFile {
		files, err := e.writer.WriteCombined(combined)
		summary.Files = append(summary.Files, files...)
		if err != nil {
			return summary, err
		}
	}

	log.WithFields(logrus.Fields{
		"folders":        summary.Folders,
		"written":        summary.Written,
		"skipped":        summary.Skipped,
		"failed":         summary.Failed,
		"write_failures": summary.WriteFailures,
	}).Info("Export complete")
	return summary, errors.Join(writeErrs...)
}

// resolveAll folds over ids, producing one Result per id in input order.
func (e *DefaultExporter) resolveAll(ctx context.Context, ids []int) ([]domain.Result, error) {
	results := make([]domain.Result, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tc, err := e.resolver.ResolveTestCase(ctx, id)
		results = append(results, domain.Result{ID: id, TestCase: tc, Err: err})
	}
	return results, nil
}

func (e *DefaultExporter) report(log *logrus.Entry, failed []domain.Result, summary *Summary) {
	for _, r := range failed {
		if errors.Is(r.Err, domain.ErrWrongType) {
			log.Warnf("Work item %d is not a Test Case", r.ID)
			summary.Skipped++
			continue
		}
		log.WithField("id", r.ID).Errorf("Error processing work item %d: %v", r.ID, r.Err)
		summary.Failed++
	}
}

// lock takes an exclusive lock on the output root so two exports cannot
// interleave writes to the same tree.
func (e *DefaultExporter) lock(ctx context.Context) (func(), error) {
	root := e.cfg.Output.Directory
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, domain.NewErrorWithSuggestion("write", root, 0,
			"failed to create output directory",
			"check that the parent directory exists and has write permissions",
			err)
	}

	path := filepath.Join(root, LockFileName)
	fl := flock.New(path)

	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(lockCtx, lockRetryWait)
	if err != nil || !locked {
		return nil, domain.NewErrorWithSuggestion("write", path, 0,
			"output directory is locked by another export",
			"wait for the other export to finish or set output.lock to false",
			err)
	}
	e.log.Debugf("Locked %s", path)

	return func() {
		if err := fl.Unlock(); err != nil {
			e.log.Warnf("Failed to release lock %s: %v", path, err)
		}
	}, nil
}
