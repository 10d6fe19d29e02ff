package resolver

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var markupTag = regexp.MustCompile(`(?s)<.*?>`)

// NormalizeText turns a formatted TFS value into plain text: entities are
// decoded first so that escaped markup becomes real tags, then tags are
// removed, then surrounding whitespace is trimmed.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(s)
	s = markupTag.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
