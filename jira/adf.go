package jira

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ADFDocument represents an Atlassian Document Format document.
// Jira Cloud API v3 uses it for descriptions and comment bodies.
type ADFDocument struct {
	Version int       `json:"version"` // Always 1
	Type    string    `json:"type"`    // Always "doc"
	Content []ADFNode `json:"content"`
}

// ADFNode represents a node in an ADF document.
type ADFNode struct {
	Type    string         `json:"type"`
	Content []ADFNode      `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []ADFMark      `json:"marks,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// ADFMark represents formatting applied to text.
type ADFMark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// ADF node types
const (
	ADFNodeDoc         = "doc"
	ADFNodeParagraph   = "paragraph"
	ADFNodeText        = "text"
	ADFNodeHardBreak   = "hardBreak"
	ADFNodeHeading     = "heading"
	ADFNodeBulletList  = "bulletList"
	ADFNodeOrderedList = "orderedList"
	ADFNodeListItem    = "listItem"
	ADFNodeCodeBlock   = "codeBlock"
	ADFNodeBlockquote  = "blockquote"
	ADFNodeRule        = "rule"
	ADFNodePanel       = "panel"
)

// blockNodes are joined with newlines when flattened; everything else is
// joined with spaces.
var blockNodes = map[string]bool{
	ADFNodeParagraph:   true,
	ADFNodeHeading:     true,
	ADFNodeBulletList:  true,
	ADFNodeOrderedList: true,
	ADFNodeListItem:    true,
	ADFNodeBlockquote:  true,
	ADFNodeCodeBlock:   true,
	ADFNodeRule:        true,
	ADFNodePanel:       true,
}

// NewADFDocument creates a new empty ADF document.
func NewADFDocument() *ADFDocument {
	return &ADFDocument{
		Version: 1,
		Type:    ADFNodeDoc,
		Content: []ADFNode{},
	}
}

// Validate validates the ADF document structure.
func (d *ADFDocument) Validate() error {
	if d.Version != 1 {
		return ErrADFVersionOnly
	}
	if d.Type != ADFNodeDoc {
		return ErrADFTypeInvalid
	}
	return nil
}

// AddParagraph adds a paragraph with text to the document.
func (d *ADFDocument) AddParagraph(text string) {
	d.Content = append(d.Content, ADFNode{
		Type:    ADFNodeParagraph,
		Content: []ADFNode{{Type: ADFNodeText, Text: text}},
	})
}

// AddCodeBlock adds a code block to the document.
func (d *ADFDocument) AddCodeBlock(code string) {
	d.Content = append(d.Content, ADFNode{
		Type:    ADFNodeCodeBlock,
		Attrs:   map[string]any{},
		Content: []ADFNode{{Type: ADFNodeText, Text: code}},
	})
}

// =============================================================================
// Plain text conversion
// =============================================================================

// ADFToText flattens a description or comment body to plain text. Strings
// (API v2) are returned unchanged; anything else is decoded as ADF.
func ADFToText(v any) string {
	switch body := v.(type) {
	case nil:
		return ""
	case string:
		return body
	case *ADFDocument:
		return flattenNodes(ADFNodeDoc, body.Content)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	var node ADFNode
	if err := json.Unmarshal(data, &node); err != nil {
		return ""
	}
	return flatten(node)
}

func flatten(n ADFNode) string {
	switch n.Type {
	case ADFNodeText:
		return n.Text
	case ADFNodeHardBreak:
		return "\n"
	}
	return flattenNodes(n.Type, n.Content)
}

func flattenNodes(parent string, nodes []ADFNode) string {
	parts := make([]string, 0, len(nodes))
	for _, child := range nodes {
		if s := flatten(child); s != "" {
			parts = append(parts, s)
		}
	}
	sep := " "
	if blockNodes[parent] {
		sep = "\n"
	}
	return strings.Join(parts, sep)
}

var (
	codeMarker   = regexp.MustCompile(`\{code\}`)
	blankLineSep = regexp.MustCompile(`\n{2,}`)
)

// TextToADF converts a plain-text comment into ADF. Segments between
// {code} markers become code blocks; the rest is split into paragraphs on
// blank lines. Text with no content yields a single paragraph.
func TextToADF(text string) *ADFDocument {
	doc := NewADFDocument()

	for i, part := range codeMarker.Split(text, -1) {
		if i%2 == 1 {
			if code := strings.TrimSpace(part); code != "" {
				doc.AddCodeBlock(code)
			}
			continue
		}
		for _, para := range blankLineSep.Split(part, -1) {
			if para = strings.TrimSpace(para); para != "" {
				doc.AddParagraph(para)
			}
		}
	}

	if len(doc.Content) == 0 {
		doc.AddParagraph(text)
	}
	return doc
}
