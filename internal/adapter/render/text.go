package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/relscope/relscope/internal/core/association"
	"github.com/relscope/relscope/internal/core/domain"
)

var (
	headingColor = color.New(color.Bold)
	weakColor    = color.New(color.FgYellow)
	warnColor    = color.New(color.FgRed)
)

// Text renders a human-readable report, one section per table. Colors follow
// fatih/color and are disabled when stdout is not a terminal.
type Text struct{}

func (r *Text) Render(w io.Writer, cat *domain.Catalog, res *association.Result) error {
	bw := bufio.NewWriter(w)

	if cat.Name != "" {
		headingColor.Fprintf(bw, "Catalog %s\n\n", cat.Name)
	}
	for _, t := range cat.Tables() {
		if err := writeTable(bw, t, res.For(t.Ref())); err != nil {
			return err
		}
	}

	var stats association.Stats
	if res != nil {
		stats = res.Stats
	}
	headingColor.Fprintln(bw, "Summary")
	fmt.Fprintf(bw, "  tables: %d, candidate keys: %d, weak associations: %d, excluded: %d, ambiguous: %d\n",
		stats.Tables, stats.CandidateKeys, stats.Associations, stats.Excluded, stats.Ambiguous)

	if res != nil && len(res.Ambiguous) > 0 {
		fmt.Fprintln(bw)
		warnColor.Fprintln(bw, "Ambiguous (no association inferred)")
		for _, amb := range res.Ambiguous {
			fmt.Fprintf(bw, "  %s ~ %s\n", amb.Tables[0], amb.Tables[1])
			for _, c := range amb.Candidates {
				fmt.Fprintf(bw, "    %s -> %s [%s, score %d]\n", c.Source, c.Target, c.Kind, c.Score)
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func writeTable(w io.Writer, t *domain.Table, was []association.WeakAssociation) error {
	kind := "table"
	if t.IsView {
		kind = "view"
	}
	headingColor.Fprintf(w, "%s %s\n", kind, t.Ref())
	if t.Comment != "" {
		fmt.Fprintf(w, "  %s\n", t.Comment)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range t.Columns {
		null := "not null"
		if c.Nullable {
			null = "null"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", c.Name, c.DataType, null, c.Comment)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing columns of %s: %w", t.Ref(), err)
	}

	if t.PrimaryKey != nil {
		fmt.Fprintf(w, "  primary key (%s)\n", strings.Join(t.PrimaryKey.Columns, ", "))
	}
	for _, k := range t.AlternateKeys {
		fmt.Fprintf(w, "  unique (%s)\n", strings.Join(k.Columns, ", "))
	}
	for _, fk := range t.ForeignKeys {
		fmt.Fprintf(w, "  foreign key (%s) -> %s(%s)\n",
			strings.Join(fk.Columns, ", "), fk.ReferencedTable, strings.Join(fk.ReferencedColumns, ", "))
	}
	for _, wa := range was {
		local, remote := wa.Local(t.Ref())
		arrow := "->"
		if local != wa.Source {
			arrow = "<-"
		}
		weakColor.Fprintf(w, "  weak %s %s %s [%s]\n", local.Column, arrow, remote, wa.Kind)
	}
	fmt.Fprintln(w)
	return nil
}
