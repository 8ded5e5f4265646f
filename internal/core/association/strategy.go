package association

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/relscope/relscope/internal/core/domain"
	"golang.org/x/sync/errgroup"
)

// Proposal is a candidate association before conflict resolution. Source is
// the column that looks like a reference, Target the key it points at.
type Proposal struct {
	Source  domain.ColumnRef `json:"source"`
	Target  domain.ColumnRef `json:"target"`
	Kind    Kind             `json:"kind"`
	Score   int              `json:"score"`
	KeyKind KeyKind          `json:"key_kind"`
}

// columnPair is the unordered pair of endpoints, lowest first.
func (p Proposal) columnPair() [2]domain.ColumnRef {
	return orderedColumns(p.Source, p.Target)
}

func (p Proposal) tablePair() [2]domain.TableRef {
	return orderedTables(p.Source.Table, p.Target.Table)
}

func orderedColumns(a, b domain.ColumnRef) [2]domain.ColumnRef {
	if b.Compare(a) < 0 {
		return [2]domain.ColumnRef{b, a}
	}
	return [2]domain.ColumnRef{a, b}
}

func orderedTables(a, b domain.TableRef) [2]domain.TableRef {
	if b.Compare(a) < 0 {
		return [2]domain.TableRef{b, a}
	}
	return [2]domain.TableRef{a, b}
}

// matcher holds the read-only inputs shared by all strategies.
type matcher struct {
	tables     []*domain.Table
	index      *KeyIndex
	norm       *Normalizer
	exclude    func(domain.ColumnRef) bool
	compatible func(a, b string) bool
	linked     map[[2]domain.TableRef]bool
	groupLimit int
	workers    int
	logger     *slog.Logger
}

func newMatcher(tables []*domain.Table, ix *KeyIndex, n *Normalizer, opts Options, exclude func(domain.ColumnRef) bool, logger *slog.Logger) *matcher {
	m := &matcher{
		tables:     tables,
		index:      ix,
		norm:       n,
		exclude:    exclude,
		compatible: opts.TypesCompatible,
		linked:     make(map[[2]domain.TableRef]bool),
		groupLimit: opts.ExtensionGroupLimit,
		workers:    workerCount(opts.Workers),
		logger:     logger,
	}
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			m.linked[orderedTables(t.Ref(), fk.ReferencedTable)] = true
		}
	}
	return m
}

// run dispatches one strategy. The set of strategies is fixed; an unknown
// kind is a programming error.
func (m *matcher) run(ctx context.Context, k Kind) ([]Proposal, error) {
	switch k {
	case KindExactKey:
		return m.perTable(ctx, m.exactMatches)
	case KindPrefixedKey:
		return m.perTable(ctx, m.prefixedMatches)
	case KindExtension:
		return m.extensionMatches(), nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %s", ErrInvariantViolation, k)
	}
}

// perTable fans a column-scanning strategy out over the tables. Each worker
// owns one result slot; results are concatenated in table order.
func (m *matcher) perTable(ctx context.Context, scan func(*domain.Table) []Proposal) ([]Proposal, error) {
	results := make([][]Proposal, len(m.tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, t := range m.tables {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = scan(t)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(results...), nil
}

// exactMatches proposes an association for every column of t whose token
// equals another table's key token.
func (m *matcher) exactMatches(t *domain.Table) []Proposal {
	var out []Proposal
	for _, col := range t.Columns {
		src := domain.ColumnRef{Table: t.Ref(), Column: col.Name}
		if m.excluded(src) {
			continue
		}
		for _, key := range m.index.Lookup(m.norm.Token(col.Name)) {
			if p, ok := m.propose(src, col.DataType, key, KindExactKey); ok {
				out = append(out, p)
			}
		}
	}
	return out
}

// prefixedMatches proposes an association for every column of t whose
// trailing words spell another table's key token behind a non-empty prefix,
// e.g. BILLING_CUSTOMER_ID against CUSTOMERID. Matching whole words keeps
// XCUSTOMERID from matching.
func (m *matcher) prefixedMatches(t *domain.Table) []Proposal {
	var out []Proposal
	for _, col := range t.Columns {
		src := domain.ColumnRef{Table: t.Ref(), Column: col.Name}
		if m.excluded(src) {
			continue
		}
		words := m.norm.Words(col.Name)
		for i := 1; i < len(words); i++ {
			suffix := strings.Join(words[i:], "")
			for _, key := range m.index.Lookup(suffix) {
				if p, ok := m.propose(src, col.DataType, key, KindPrefixedKey); ok {
					out = append(out, p)
				}
			}
		}
	}
	return out
}

// extensionMatches pairs tables whose single-column primary keys share a
// column token and that no declared foreign key already links.
func (m *matcher) extensionMatches() []Proposal {
	groups := make(map[string][]CandidateKey)
	var tokens []string
	for _, k := range m.index.PrimaryKeys() {
		if _, ok := groups[k.ColumnToken]; !ok {
			tokens = append(tokens, k.ColumnToken)
		}
		groups[k.ColumnToken] = append(groups[k.ColumnToken], k)
	}
	slices.Sort(tokens)

	var out []Proposal
	for _, tok := range tokens {
		keys := groups[tok]
		if len(keys) < 2 {
			continue
		}
		if m.groupLimit > 0 && len(keys) > m.groupLimit {
			m.logger.Debug("extension group too large, skipped",
				slog.String("token", tok),
				slog.Int("tables", len(keys)),
				slog.Int("limit", m.groupLimit),
			)
			continue
		}
		slices.SortFunc(keys, func(a, b CandidateKey) int { return a.Table.Compare(b.Table) })
		for i := range keys {
			for j := i + 1; j < len(keys); j++ {
				a, b := keys[i], keys[j]
				if a.Table == b.Table || m.linked[orderedTables(a.Table, b.Table)] {
					continue
				}
				if !m.typesMatch(a.DataType, b.DataType) {
					continue
				}
				out = append(out, Proposal{
					Source:  a.Ref(),
					Target:  b.Ref(),
					Kind:    KindExtension,
					Score:   KindExtension.Score(),
					KeyKind: KeyPrimary,
				})
			}
		}
	}
	return out
}

func (m *matcher) propose(src domain.ColumnRef, dataType string, key CandidateKey, kind Kind) (Proposal, bool) {
	if key.Table == src.Table || !m.typesMatch(dataType, key.DataType) {
		return Proposal{}, false
	}
	return Proposal{
		Source:  src,
		Target:  key.Ref(),
		Kind:    kind,
		Score:   kind.Score() - key.Kind.Rank(),
		KeyKind: key.Kind,
	}, true
}

func (m *matcher) excluded(ref domain.ColumnRef) bool {
	return m.exclude != nil && m.exclude(ref)
}

func (m *matcher) typesMatch(a, b string) bool {
	if m.compatible == nil || a == "" || b == "" {
		return true
	}
	return m.compatible(a, b)
}
