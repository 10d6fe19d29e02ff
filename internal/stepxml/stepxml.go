// Package stepxml parses the XML document stored in a work item's steps field
// into a small tree of step and shared-step reference nodes.
//
// A typical document looks like:
//
//	<steps id="0" last="3">
//	  <step id="2" type="ActionStep">
//	    <parameterizedString isformatted="true">&lt;P&gt;Open app&lt;/P&gt;</parameterizedString>
//	    <parameterizedString isformatted="true">App opens</parameterizedString>
//	  </step>
//	  <compref id="3" ref="4711"/>
//	</steps>
package stepxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
)

const (
	elemStep                = "step"
	elemCompref             = "compref"
	elemParameterizedString = "parameterizedString"
	attrRef                 = "ref"
)

// Node is either a *StepNode or a *ComprefNode.
type Node interface {
	node()
}

// StepNode is a literal test step. Values holds the text of each
// parameterizedString child in document order: the first is the action, the
// second the expected result.
type StepNode struct {
	Values []string
}

// ComprefNode references a Shared Steps work item and may carry its own
// inline children.
type ComprefNode struct {
	Ref      string
	Children []Node
}

func (*StepNode) node()    {}
func (*ComprefNode) node() {}

// Action returns the first parameterized string.
func (s *StepNode) Action() (string, bool) {
	if len(s.Values) < 1 {
		return "", false
	}
	return s.Values[0], true
}

// ExpectedResult returns the second parameterized string.
func (s *StepNode) ExpectedResult() (string, bool) {
	if len(s.Values) < 2 {
		return "", false
	}
	return s.Values[1], true
}

// RefID returns the referenced work item ID. ok is false when the ref
// attribute is missing or not an integer.
func (c *ComprefNode) RefID() (id int, ok bool) {
	ref := strings.TrimSpace(c.Ref)
	if ref == "" {
		return 0, false
	}
	id, err := strconv.Atoi(ref)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Parse decodes a steps document and returns the children of its root
// element. Elements other than step and compref are ignored. An empty or
// whitespace-only document yields no nodes.
func Parse(doc string) ([]Node, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, nil
	}

	dec := xml.NewDecoder(strings.NewReader(doc))
	// Field values arrive as already decoded text, so an encoding="utf-16"
	// declaration describes bytes we never see.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	root, err := nextStart(dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SyntaxError{Msg: "document has no root element"}
		}
		return nil, wrapSyntax(err)
	}
	nodes, err := parseChildren(dec, root.Name.Local)
	if err != nil {
		return nil, err
	}

	// Anything other than whitespace, comments or processing instructions
	// after the root element makes the document malformed.
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapSyntax(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return nil, &SyntaxError{Msg: "multiple root elements (found <" + t.Name.Local + ">)"}
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return nil, &SyntaxError{Msg: "text after root element"}
			}
		}
	}
	return nodes, nil
}

// SyntaxError reports a malformed steps document.
type SyntaxError struct {
	Msg   string
	Cause error
}

func (e *SyntaxError) Error() string {
	if e.Cause != nil {
		return "invalid steps XML: " + e.Msg + ": " + e.Cause.Error()
	}
	return "invalid steps XML: " + e.Msg
}

func (e *SyntaxError) Unwrap() error {
	return e.Cause
}

func wrapSyntax(err error) error {
	if errors.Is(err, io.EOF) {
		return &SyntaxError{Msg: "unexpected end of document"}
	}
	return &SyntaxError{Msg: "decode failed", Cause: err}
}

// nextStart skips the prolog and returns the root element.
func nextStart(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t, nil
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return xml.StartElement{}, &SyntaxError{Msg: "text before root element"}
			}
		}
	}
}

// parseChildren reads step and compref children until the end of the
// element named parent.
func parseChildren(dec *xml.Decoder, parent string) ([]Node, error) {
	var nodes []Node
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, wrapSyntax(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case elemStep:
				step, err := parseStep(dec)
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, step)
			case elemCompref:
				ref := &ComprefNode{Ref: attr(t, attrRef)}
				if ref.Children, err = parseChildren(dec, t.Name.Local); err != nil {
					return nil, err
				}
				nodes = append(nodes, ref)
			default:
				if err := dec.Skip(); err != nil {
					return nil, wrapSyntax(err)
				}
			}
		case xml.EndElement:
			if t.Name.Local == parent {
				return nodes, nil
			}
		}
	}
}

// parseStep collects the parameterizedString values of a step element.
// Other children (description, ...) are skipped.
func parseStep(dec *xml.Decoder) (*StepNode, error) {
	step := &StepNode{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, wrapSyntax(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != elemParameterizedString {
				if err := dec.Skip(); err != nil {
					return nil, wrapSyntax(err)
				}
				continue
			}
			value, err := innerText(dec)
			if err != nil {
				return nil, err
			}
			step.Values = append(step.Values, value)
		case xml.EndElement:
			return step, nil
		}
	}
}

// innerText concatenates all character data up to the end of the current
// element, descending into nested elements.
func innerText(dec *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", wrapSyntax(err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return b.String(), nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
