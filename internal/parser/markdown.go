package parser

import (
	"bytes"
	"strconv"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/fjglira/tfs-testcase-exporter/internal/domain"
)

// MarkdownParser reads test plans written in Markdown using goldmark.
// Every heading opens a folder named after its text; list items below it
// contribute the work item IDs they mention:
//
//	# Smoke
//	- #100 Login
//	- 300 Launch from home screen
//
// Numbers in prose, headings and code are ignored.
type MarkdownParser struct {
	md goldmark.Markdown
}

// NewMarkdownParser creates a new MarkdownParser.
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{md: goldmark.New()}
}

// SupportedExtensions returns the file extensions this parser handles.
func (p *MarkdownParser) SupportedExtensions() []string {
	return []string{".md", ".markdown"}
}

// Parse walks the Markdown AST and groups list item IDs by heading.
func (p *MarkdownParser) Parse(filePath string, content []byte) ([]domain.FolderGroup, error) {
	doc := p.md.Parser().Parse(text.NewReader(content))

	b := newGroupBuilder(filePath)
	fileFolder := FolderNameFromFile(filePath)
	folder := fileFolder

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			folder = SanitizeFolderName(extractText(node, content))
			if folder == "" {
				folder = fileFolder
			}
			return ast.WalkSkipChildren, nil

		case *ast.CodeSpan, *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil

		case *ast.Text:
			if insideListItem(node) {
				b.add(folder, idsIn(node.Segment.Value(content))...)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, domain.NewErrorWithSuggestion("source", filePath, 0,
			"failed to walk markdown AST",
			"check the plan file for syntax issues", err)
	}

	return b.result(), nil
}

// extractText gets the text content of a heading node.
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := child.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func insideListItem(n ast.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if _, ok := p.(*ast.ListItem); ok {
			return true
		}
	}
	return false
}

// idsIn returns the positive integers that stand alone as words in s,
// optionally prefixed with '#'. "TC-123" and "v2" are not IDs.
func idsIn(s []byte) []int {
	words := strings.FieldsFunc(string(s), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '#' || r == '-' || r == '_')
	})
	var ids []int
	for _, w := range words {
		w = strings.TrimPrefix(w, "#")
		if w == "" || strings.TrimFunc(w, unicode.IsDigit) != "" {
			continue
		}
		if id, err := strconv.Atoi(w); err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
