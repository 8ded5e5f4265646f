package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/relscope/relscope/internal/core/association"
	"github.com/relscope/relscope/internal/core/domain"
)

// DOT renders a Graphviz digraph. Declared foreign keys are solid edges and
// weak associations are dashed edges labelled with their kind.
type DOT struct{}

func (r *DOT) Render(w io.Writer, cat *domain.Catalog, res *association.Result) error {
	bw := bufio.NewWriter(w)

	name := cat.Name
	if name == "" {
		name = "catalog"
	}
	fmt.Fprintf(bw, "digraph %s {\n", dotQuote(name))
	fmt.Fprintln(bw, "  rankdir=LR;")
	fmt.Fprintln(bw, "  node [shape=box, fontname=\"Helvetica\"];")

	for _, t := range cat.Tables() {
		attrs := ""
		if t.IsView {
			attrs = " [style=rounded]"
		}
		fmt.Fprintf(bw, "  %s%s;\n", dotQuote(t.Ref().String()), attrs)
	}
	for _, t := range cat.Tables() {
		for _, fk := range t.ForeignKeys {
			fmt.Fprintf(bw, "  %s -> %s [label=%s];\n",
				dotQuote(t.Ref().String()), dotQuote(fk.ReferencedTable.String()),
				dotQuote(strings.Join(fk.Columns, ", ")))
		}
	}
	if res != nil {
		for _, wa := range res.Associations {
			label := fmt.Sprintf("%s: %s -> %s", wa.Kind, wa.Source.Column, wa.Target.Column)
			fmt.Fprintf(bw, "  %s -> %s [style=dashed, color=gray40, label=%s];\n",
				dotQuote(wa.Source.Table.String()), dotQuote(wa.Target.Table.String()), dotQuote(label))
		}
	}
	fmt.Fprintln(bw, "}")

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing diagram: %w", err)
	}
	return nil
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func dotQuote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}
