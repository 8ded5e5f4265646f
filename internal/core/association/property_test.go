package association

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/relscope/relscope/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var randomNouns = []string{"customer", "orders", "person", "employee", "supplier", "item", "invoice", "product", "account", "region"}

var randomSchemas = []string{"public", "sales"}

// randomCatalog builds a valid catalog from a small vocabulary so that
// tables collide on key tokens often. Tables are spread over two schemas
// and a name may appear in both.
func randomCatalog(rng *rand.Rand) *domain.Catalog {
	perm := rng.Perm(len(randomNouns))
	n := 2 + rng.IntN(len(randomNouns)-1)
	names := make([]string, 0, n)
	for _, i := range perm[:n] {
		names = append(names, randomNouns[i])
	}

	var tables []*tableBuilder
	for _, name := range names {
		other := randomNouns[rng.IntN(len(randomNouns))]
		patterns := []string{
			"id",
			other + "_id",
			"billing_" + other + "_id",
			"backup_" + other + "_id",
			"code",
			"name",
			other + "Id",
		}
		var cols []string
		seen := map[string]bool{}
		for _, c := range patterns {
			if rng.IntN(2) == 0 && !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
		if len(cols) == 0 {
			cols = []string{"id"}
		}
		b := newTable(name, cols...)
		b.t.Schema = randomSchemas[rng.IntN(len(randomSchemas))]

		switch rng.IntN(4) {
		case 0:
			b.pk(cols[0])
		case 1:
			if len(cols) > 1 {
				b.pk(cols[0], cols[1])
			}
		case 2:
			b.pk(cols[rng.IntN(len(cols))])
		}
		if rng.IntN(3) == 0 {
			b.unique(cols[rng.IntN(len(cols))])
		}
		tables = append(tables, b)

		if rng.IntN(4) == 0 {
			twin := *b
			twin.t.Columns = append([]domain.Column(nil), b.t.Columns...)
			twin.t.AlternateKeys = append([]domain.Key(nil), b.t.AlternateKeys...)
			twin.t.Schema = otherSchema(b.t.Schema)
			tables = append(tables, &twin)
		}
	}

	for _, b := range tables {
		if rng.IntN(3) != 0 {
			continue
		}
		target := tables[rng.IntN(len(tables))]
		if target == b {
			continue
		}
		local := b.t.Columns[rng.IntN(len(b.t.Columns))].Name
		remote := target.t.Columns[rng.IntN(len(target.t.Columns))].Name
		b.t.ForeignKeys = append(b.t.ForeignKeys, domain.ForeignKey{
			Columns:           []string{local},
			ReferencedTable:   target.t.Ref(),
			ReferencedColumns: []string{remote},
		})
	}

	cat := &domain.Catalog{}
	for _, name := range randomSchemas {
		s := domain.Schema{Name: name}
		for _, b := range tables {
			if b.t.Schema == name {
				s.Tables = append(s.Tables, b.t)
			}
		}
		cat.Schemas = append(cat.Schemas, s)
	}
	return cat
}

func otherSchema(name string) string {
	if name == randomSchemas[0] {
		return randomSchemas[1]
	}
	return randomSchemas[0]
}

// shuffled returns a deep copy of cat with tables and columns reordered.
func shuffled(rng *rand.Rand, cat *domain.Catalog) *domain.Catalog {
	out := &domain.Catalog{Name: cat.Name}
	for _, s := range cat.Schemas {
		ns := domain.Schema{Name: s.Name}
		for _, t := range s.Tables {
			nt := t
			nt.Columns = append([]domain.Column(nil), t.Columns...)
			rng.Shuffle(len(nt.Columns), func(i, j int) { nt.Columns[i], nt.Columns[j] = nt.Columns[j], nt.Columns[i] })
			ns.Tables = append(ns.Tables, nt)
		}
		rng.Shuffle(len(ns.Tables), func(i, j int) { ns.Tables[i], ns.Tables[j] = ns.Tables[j], ns.Tables[i] })
		out.Schemas = append(out.Schemas, ns)
	}
	rng.Shuffle(len(out.Schemas), func(i, j int) { out.Schemas[i], out.Schemas[j] = out.Schemas[j], out.Schemas[i] })
	return out
}

func ambiguousPairs(as []Ambiguity) [][2]domain.TableRef {
	out := make([][2]domain.TableRef, 0, len(as))
	for _, a := range as {
		out = append(out, a.Tables)
	}
	return out
}

func declaredPairs(cat *domain.Catalog) map[[2]domain.ColumnRef]bool {
	out := make(map[[2]domain.ColumnRef]bool)
	for _, t := range cat.Tables() {
		for _, fk := range t.ForeignKeys {
			for i := range fk.Columns {
				out[orderedColumns(
					domain.ColumnRef{Table: t.Ref(), Column: fk.Columns[i]},
					domain.ColumnRef{Table: fk.ReferencedTable, Column: fk.ReferencedColumns[i]},
				)] = true
			}
		}
	}
	return out
}

func TestAnalyze_RandomCatalogInvariants(t *testing.T) {
	t.Parallel()
	a, err := NewAnalyzer(Options{Workers: 4})
	require.NoError(t, err)

	for seed := range uint64(200) {
		rng := rand.New(rand.NewPCG(seed, 0x5eed))
		cat := randomCatalog(rng)
		require.NoError(t, cat.Validate(), "seed %d", seed)

		res, err := a.Analyze(context.Background(), cat)
		require.NoError(t, err, "seed %d", seed)

		declared := declaredPairs(cat)
		pairs := make(map[[2]domain.TableRef]bool)
		for _, wa := range res.Associations {
			msg := fmt.Sprintf("seed %d: %s", seed, wa)
			assert.NotEqual(t, wa.Source.Table, wa.Target.Table, msg)
			assert.False(t, declared[orderedColumns(wa.Source, wa.Target)], msg)

			pair := orderedTables(wa.Source.Table, wa.Target.Table)
			assert.False(t, pairs[pair], "%s: second association for one table pair", msg)
			pairs[pair] = true
		}
		for _, amb := range res.Ambiguous {
			assert.False(t, pairs[amb.Tables], "seed %d: ambiguous pair %v also resolved", seed, amb.Tables)
		}

		again, err := a.Analyze(context.Background(), shuffled(rng, cat))
		require.NoError(t, err, "seed %d", seed)
		assert.Equal(t, canonical(res.Associations), canonical(again.Associations), "seed %d", seed)
		assert.Equal(t, canonical(res.Excluded), canonical(again.Excluded), "seed %d", seed)
		assert.Equal(t, ambiguousPairs(res.Ambiguous), ambiguousPairs(again.Ambiguous), "seed %d", seed)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(42, 42))
	cat := randomCatalog(rng)

	a, err := NewAnalyzer(Options{})
	require.NoError(t, err)
	first, err := a.Analyze(context.Background(), cat)
	require.NoError(t, err)

	for range 10 {
		res, err := a.Analyze(context.Background(), cat)
		require.NoError(t, err)
		assert.Equal(t, first, res)
	}
}
