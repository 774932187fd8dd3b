package ui

import (
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

// highlight colours a SQL or Cypher preview. Plain text, unknown syntax
// and colourless terminals get the source unchanged.
func (t *Terminal) highlight(source, syntax string) string {
	if !t.color || syntax == "" {
		return source
	}
	var b strings.Builder
	if err := quick.Highlight(&b, source, syntax, "terminal256", "monokai"); err != nil {
		return source
	}
	return strings.TrimRight(b.String(), "\n")
}
