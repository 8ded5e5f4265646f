// Package render writes a catalog and its weak associations as a text
// report, a JSON document or a Graphviz diagram.
package render

import (
	"errors"
	"fmt"
	"io"

	"github.com/relscope/relscope/internal/core/association"
	"github.com/relscope/relscope/internal/core/domain"
)

var ErrUnknownFormat = errors.New("unknown output format")

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatDOT  = "dot"
)

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatText, FormatJSON, FormatDOT}
}

// Renderer writes one analysis report.
type Renderer interface {
	Render(w io.Writer, cat *domain.Catalog, res *association.Result) error
}

// New returns the renderer for format.
func New(format string) (Renderer, error) {
	switch format {
	case FormatText:
		return &Text{}, nil
	case FormatJSON:
		return &JSON{Indent: "  "}, nil
	case FormatDOT:
		return &DOT{}, nil
	default:
		return nil, fmt.Errorf("%w %q (allowed: text, json, dot)", ErrUnknownFormat, format)
	}
}
