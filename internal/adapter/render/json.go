package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/relscope/relscope/internal/core/association"
	"github.com/relscope/relscope/internal/core/domain"
	"github.com/relscope/relscope/internal/core/port"
)

// document is the JSON report. Tables carry the weak associations that touch
// them so consumers need no join.
type document struct {
	Catalog      string                        `json:"catalog,omitempty"`
	Tables       []port.TableDetail            `json:"tables"`
	Associations []association.WeakAssociation `json:"weak_associations"`
	Excluded     []association.WeakAssociation `json:"excluded,omitempty"`
	Ambiguous    []association.Ambiguity       `json:"ambiguous,omitempty"`
	Stats        association.Stats             `json:"stats"`
}

type JSON struct {
	Indent string
}

func (r *JSON) Render(w io.Writer, cat *domain.Catalog, res *association.Result) error {
	doc := document{
		Catalog:      cat.Name,
		Tables:       []port.TableDetail{},
		Associations: []association.WeakAssociation{},
	}
	for _, t := range cat.Tables() {
		was := res.For(t.Ref())
		if was == nil {
			was = []association.WeakAssociation{}
		}
		doc.Tables = append(doc.Tables, port.TableDetail{Table: *t, WeakAssociations: was})
	}
	if res != nil {
		doc.Associations = append(doc.Associations, res.Associations...)
		doc.Excluded = res.Excluded
		doc.Ambiguous = res.Ambiguous
		doc.Stats = res.Stats
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", r.Indent)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}
