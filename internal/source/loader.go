// Package source builds the folder groupings an export processes.
package source

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/fjglira/tfs-testcase-exporter/internal/config"
	"github.com/fjglira/tfs-testcase-exporter/internal/domain"
	"github.com/fjglira/tfs-testcase-exporter/internal/parser"
	"github.com/fjglira/tfs-testcase-exporter/internal/scanner"
)

// Loader produces the ordered folder groups for an export run.
type Loader interface {
	Load(cfg *config.Config) ([]domain.FolderGroup, error)
}

// DefaultLoader merges groups from the config file, the ids file and any
// plan files found in the input directories, in that order.
type DefaultLoader struct {
	scanner  scanner.Scanner
	registry parser.ParserRegistry
	ids      parser.Parser
	log      *logrus.Logger
}

// NewLoader creates a new DefaultLoader.
func NewLoader(s scanner.Scanner, r parser.ParserRegistry, log *logrus.Logger) *DefaultLoader {
	return &DefaultLoader{
		scanner:  s,
		registry: r,
		ids:      parser.NewPlaintextParser(),
		log:      log,
	}
}

// Load collects and merges folder groups. Groups sharing a name are merged in
// source order; groups left without IDs are dropped with a warning. Any
// unreadable or malformed source is fatal.
func (l *DefaultLoader) Load(cfg *config.Config) ([]domain.FolderGroup, error) {
	m := newMerger()

	for _, f := range cfg.Folders {
		m.add(domain.FolderGroup{Name: f.Name, IDs: f.IDs, Source: "config"})
	}

	if cfg.Input.IDsFile != "" {
		groups, err := l.parseFile(l.ids, cfg.Input.IDsFile)
		if err != nil {
			return nil, err
		}
		m.add(groups...)
	}

	for _, dir := range cfg.Input.Directories {
		l.log.Debugf("Scanning directory: %s", dir)
		files, err := l.scanner.Scan(dir, cfg.Input.Include, cfg.Input.Exclude)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			p, err := l.registry.ParserFor(filepath.Ext(file))
			if err != nil {
				l.log.Warnf("No parser for %s, skipping", file)
				continue
			}
			groups, err := l.parseFile(p, file)
			if err != nil {
				return nil, err
			}
			l.log.Debugf("Found %d folder(s) in %s", len(groups), file)
			m.add(groups...)
		}
	}

	groups := m.result(l.log)
	if len(groups) == 0 {
		l.log.Warn("No work item ids found in any source")
	}
	return groups, nil
}

func (l *DefaultLoader) parseFile(p parser.Parser, path string) ([]domain.FolderGroup, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewErrorWithSuggestion("source", path, 0,
			"failed to read file",
			"check that the file exists and has read permissions",
			fmt.Errorf("%w: %w", domain.ErrConfig, err))
	}
	return p.Parse(path, content)
}

// Filter keeps only the named groups, preserving order. An empty name list
// keeps everything. Names that match no group are returned as unknown.
func Filter(groups []domain.FolderGroup, names []string) (kept []domain.FolderGroup, unknown []string) {
	if len(names) == 0 {
		return groups, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	seen := make(map[string]bool, len(groups))
	for _, g := range groups {
		if want[g.Name] {
			kept = append(kept, g)
			seen[g.Name] = true
		}
	}
	for _, n := range names {
		if !seen[n] {
			unknown = append(unknown, n)
		}
	}
	return kept, unknown
}

type merger struct {
	order  []string
	groups map[string]*domain.FolderGroup
}

func newMerger() *merger {
	return &merger{groups: make(map[string]*domain.FolderGroup)}
}

func (m *merger) add(groups ...domain.FolderGroup) {
	for _, g := range groups {
		existing, ok := m.groups[g.Name]
		if !ok {
			cp := domain.FolderGroup{Name: g.Name, Source: g.Source}
			existing = &cp
			m.groups[g.Name] = existing
			m.order = append(m.order, g.Name)
		} else if g.Source != existing.Source {
			existing.Source += ", " + g.Source
		}
		existing.IDs = append(existing.IDs, g.IDs...)
	}
}

func (m *merger) result(log *logrus.Logger) []domain.FolderGroup {
	out := make([]domain.FolderGroup, 0, len(m.order))
	for _, name := range m.order {
		g := m.groups[name]
		if len(g.IDs) == 0 {
			log.Warnf("Folder %q has no work item ids, skipping", name)
			continue
		}
		out = append(out, *g)
	}
	return out
}
