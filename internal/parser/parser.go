// Package parser reads test plan files: documents that assign work item IDs
// to output folders.
package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fjglira/tfs-testcase-exporter/internal/domain"
)

// Parser extracts folder groupings from a plan file.
type Parser interface {
	Parse(filePath string, content []byte) ([]domain.FolderGroup, error)
	SupportedExtensions() []string
}

// ParserRegistry maps file extensions to parsers.
type ParserRegistry interface {
	Register(parser Parser)
	ParserFor(extension string) (Parser, error)
}

// DefaultRegistry is a thread-safe parser registry.
type DefaultRegistry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
}

// NewRegistry creates a new DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{
		parsers: make(map[string]Parser),
	}
}

// NewDefaultRegistry returns a registry with the Markdown and plain-text
// parsers registered.
func NewDefaultRegistry() *DefaultRegistry {
	r := NewRegistry()
	r.Register(NewMarkdownParser())
	r.Register(NewPlaintextParser())
	return r
}

// Register adds a parser to the registry for each of its supported extensions.
func (r *DefaultRegistry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range p.SupportedExtensions() {
		r.parsers[normalizeExt(ext)] = p
	}
}

// ParserFor returns the parser registered for the given file extension.
func (r *DefaultRegistry) ParserFor(extension string) (Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.parsers[normalizeExt(extension)]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("no parser registered for extension %q", extension)
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// DefaultFolderName is used when a file name leaves nothing usable after
// sanitising.
const DefaultFolderName = "default"

// FolderNameFromFile derives the default folder for IDs that appear before
// any explicit folder marker in a plan file.
func FolderNameFromFile(filePath string) string {
	base := filepath.Base(filePath)
	if name := SanitizeFolderName(strings.TrimSuffix(base, filepath.Ext(base))); name != "" {
		return name
	}
	return DefaultFolderName
}

// SanitizeFolderName converts free text (a heading, a file name) into a
// folder name: lower case, spaces and dashes become underscores, anything
// else non-alphanumeric is dropped.
// e.g. "Login & Sign-up Flows" → "login_sign_up_flows"
func SanitizeFolderName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, c := range name {
		switch {
		case (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_':
			b.WriteRune(c)
		case c == ' ' || c == '-' || c == '\t':
			b.WriteRune('_')
		}
	}
	result := b.String()
	for strings.Contains(result, "__") {
		result = strings.ReplaceAll(result, "__", "_")
	}
	return strings.Trim(result, "_")
}

// groupBuilder accumulates IDs into folders in first-seen order.
type groupBuilder struct {
	source string
	order  []string
	groups map[string]*domain.FolderGroup
}

func newGroupBuilder(source string) *groupBuilder {
	return &groupBuilder{source: source, groups: make(map[string]*domain.FolderGroup)}
}

func (b *groupBuilder) add(folder string, ids ...int) {
	g, ok := b.groups[folder]
	if !ok {
		g = &domain.FolderGroup{Name: folder, Source: b.source}
		b.groups[folder] = g
		b.order = append(b.order, folder)
	}
	g.IDs = append(g.IDs, ids...)
}

func (b *groupBuilder) result() []domain.FolderGroup {
	out := make([]domain.FolderGroup, 0, len(b.order))
	for _, name := range b.order {
		if g := b.groups[name]; len(g.IDs) > 0 {
			out = append(out, *g)
		}
	}
	return out
}
