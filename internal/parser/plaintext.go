package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fjglira/tfs-testcase-exporter/internal/domain"
)

// PlaintextParser reads ID lists with one work item ID per line:
//
//	# comment
//	100
//	[regression]
//	200
//	300
//
// A "[name]" line switches the target folder; IDs before the first header go
// to the folder named after the file.
type PlaintextParser struct{}

// NewPlaintextParser creates a new PlaintextParser.
func NewPlaintextParser() *PlaintextParser {
	return &PlaintextParser{}
}

// SupportedExtensions returns the file extensions this parser handles.
func (p *PlaintextParser) SupportedExtensions() []string {
	return []string{".txt", ".ids", ".lst"}
}

// Parse reads the ID list. Any line that is neither blank, a comment, a
// folder header nor a positive integer is an error.
func (p *PlaintextParser) Parse(filePath string, content []byte) ([]domain.FolderGroup, error) {
	content = trimBOM(content)
	b := newGroupBuilder(filePath)
	folder := FolderNameFromFile(filePath)

	for i, raw := range strings.Split(string(content), "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "", strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
			name := SanitizeFolderName(line[1 : len(line)-1])
			if name == "" {
				return nil, domain.NewError("source", filePath, i+1,
					fmt.Sprintf("folder header %s has no usable name", line), domain.ErrConfig)
			}
			folder = name
			continue
		}

		id, err := strconv.Atoi(line)
		if err != nil || id <= 0 {
			return nil, domain.NewErrorWithSuggestion("source", filePath, i+1,
				fmt.Sprintf("invalid work item id %q", line),
				"list one positive integer id per line", domain.ErrConfig)
		}
		b.add(folder, id)
	}

	return b.result(), nil
}

func trimBOM(content []byte) []byte {
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		return content[3:]
	}
	return content
}
