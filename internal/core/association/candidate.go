package association

import (
	"fmt"

	"github.com/relscope/relscope/internal/core/domain"
)

// CandidateKey is a column that plausibly identifies rows of its table.
type CandidateKey struct {
	Table  domain.TableRef
	Column string
	// ColumnToken is the normalized column name.
	ColumnToken string
	// Token is the index token; see Normalizer.KeyToken.
	Token    string
	Kind     KeyKind
	DataType string
}

// Ref returns the key column's reference.
func (k CandidateKey) Ref() domain.ColumnRef {
	return domain.ColumnRef{Table: k.Table, Column: k.Column}
}

// ExtractCandidateKeys derives the key-like columns of one table: a
// single-column primary key, single-column alternate keys, then columns
// named like the table's own identifier. Composite keys are skipped.
func ExtractCandidateKeys(t *domain.Table, n *Normalizer) ([]CandidateKey, error) {
	ref := t.Ref()
	classified := make(map[string]bool)
	var keys []CandidateKey

	add := func(name string, kind KeyKind) error {
		col := t.Column(name)
		if col == nil {
			return fmt.Errorf("%w: %s key on %s references unknown column %q", domain.ErrMalformedCatalog, kind, ref, name)
		}
		if classified[name] {
			return nil
		}
		classified[name] = true
		colToken := n.Token(name)
		if colToken == "" {
			return nil
		}
		keys = append(keys, CandidateKey{
			Table:       ref,
			Column:      name,
			ColumnToken: colToken,
			Token:       n.KeyToken(t.Name, colToken),
			Kind:        kind,
			DataType:    col.DataType,
		})
		return nil
	}

	if pk := t.PrimaryKey; pk != nil && len(pk.Columns) == 1 {
		if err := add(pk.Columns[0], KeyPrimary); err != nil {
			return nil, err
		}
	}
	for _, ak := range t.AlternateKeys {
		if len(ak.Columns) != 1 {
			continue
		}
		if err := add(ak.Columns[0], KeyAlternate); err != nil {
			return nil, err
		}
	}
	for _, col := range t.Columns {
		if classified[col.Name] || !n.IsNaturalID(t.Name, n.Token(col.Name)) {
			continue
		}
		if err := add(col.Name, KeyNaturalID); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
