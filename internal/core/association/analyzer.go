// Package association infers weak associations: column pairs that behave
// like foreign key references by naming convention but have no declared
// constraint.
package association

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/relscope/relscope/internal/core/domain"
)

// WeakAssociation is an inferred relationship between two columns of
// different tables. Identity is the unordered pair of endpoints; Source and
// Target only orient it for display (Source looks like a reference to Target).
type WeakAssociation struct {
	Source domain.ColumnRef `json:"source"`
	Target domain.ColumnRef `json:"target"`
	Kind   Kind             `json:"kind"`
}

func newWeakAssociation(p Proposal) WeakAssociation {
	return WeakAssociation{Source: p.Source, Target: p.Target, Kind: p.Kind}
}

// Involves reports whether t is one of the endpoint tables.
func (a WeakAssociation) Involves(t domain.TableRef) bool {
	return a.Source.Table == t || a.Target.Table == t
}

// Local returns the endpoint on table t and the endpoint on the other table.
func (a WeakAssociation) Local(t domain.TableRef) (local, remote domain.ColumnRef) {
	if a.Source.Table == t {
		return a.Source, a.Target
	}
	return a.Target, a.Source
}

func (a WeakAssociation) String() string {
	return fmt.Sprintf("%s ~ %s (%s)", a.Source, a.Target, a.Kind)
}

// Stats counts what each stage of a run produced.
type Stats struct {
	Tables        int `json:"tables"`
	CandidateKeys int `json:"candidate_keys"`
	Proposals     int `json:"proposals"`
	Ambiguous     int `json:"ambiguous"`
	Excluded      int `json:"excluded"`
	Associations  int `json:"associations"`
}

// Result is the output of one analysis. It never aliases the catalog: the
// per-table view is a side table keyed by table reference.
type Result struct {
	Associations []WeakAssociation `json:"associations"`
	Excluded     []WeakAssociation `json:"excluded,omitempty"`
	Ambiguous    []Ambiguity       `json:"ambiguous,omitempty"`
	Stats        Stats             `json:"stats"`

	byTable map[domain.TableRef][]WeakAssociation
}

// For returns the associations attached to table t, in stable order.
func (r *Result) For(t domain.TableRef) []WeakAssociation {
	if r == nil {
		return nil
	}
	return slices.Clone(r.byTable[t])
}

func newResult(winners, excluded []Proposal, ambiguous []Ambiguity, stats Stats) *Result {
	r := &Result{
		Associations: make([]WeakAssociation, 0, len(winners)),
		Ambiguous:    ambiguous,
		byTable:      make(map[domain.TableRef][]WeakAssociation),
	}
	for _, p := range winners {
		wa := newWeakAssociation(p)
		r.Associations = append(r.Associations, wa)
		r.byTable[wa.Source.Table] = append(r.byTable[wa.Source.Table], wa)
		r.byTable[wa.Target.Table] = append(r.byTable[wa.Target.Table], wa)
	}
	for _, p := range excluded {
		r.Excluded = append(r.Excluded, newWeakAssociation(p))
	}
	stats.Ambiguous = len(ambiguous)
	stats.Excluded = len(excluded)
	stats.Associations = len(winners)
	r.Stats = stats
	return r
}

// Options configures an Analyzer. The zero value runs every strategy with
// default naming rules.
type Options struct {
	Naming NamingRules
	// Workers bounds the extraction and matching pools; zero uses all CPUs.
	Workers int
	// Disabled strategies never propose.
	Disabled []Kind
	// ExcludeColumns are case-insensitive path.Match globs tested against
	// "table.column" and "schema.table.column".
	ExcludeColumns []string
	// ExtensionGroupLimit skips extension matching for a primary key token
	// shared by more tables than this. Zero means no limit.
	ExtensionGroupLimit int
	// TypesCompatible, when set, rejects pairs whose data types disagree.
	TypesCompatible func(a, b string) bool
	Logger          *slog.Logger
}

// Analyzer runs the inference pipeline over catalog snapshots. It holds no
// per-run state and may be reused concurrently.
type Analyzer struct {
	opts       Options
	norm       *Normalizer
	strategies []Kind
	logger     *slog.Logger
}

func NewAnalyzer(opts Options) (*Analyzer, error) {
	for _, pattern := range opts.ExcludeColumns {
		if _, err := path.Match(strings.ToLower(pattern), ""); err != nil {
			return nil, fmt.Errorf("invalid exclude_columns pattern %q: %w", pattern, err)
		}
	}
	for _, k := range opts.Disabled {
		if !k.valid() {
			return nil, fmt.Errorf("cannot disable unknown strategy %d", int(k))
		}
	}
	if opts.ExtensionGroupLimit < 0 {
		return nil, fmt.Errorf("extension group limit must not be negative, got %d", opts.ExtensionGroupLimit)
	}

	norm, err := NewNormalizer(opts.Naming)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var strategies []Kind
	for _, k := range Kinds() {
		if !slices.Contains(opts.Disabled, k) {
			strategies = append(strategies, k)
		}
	}

	return &Analyzer{
		opts:       opts,
		norm:       norm,
		strategies: strategies,
		logger:     logger,
	}, nil
}

// Normalizer exposes the naming rules the analyzer matches with.
func (a *Analyzer) Normalizer() *Normalizer {
	return a.norm
}

// Analyze infers the weak associations of cat. A malformed catalog fails the
// whole run; an empty one yields an empty result.
func (a *Analyzer) Analyze(ctx context.Context, cat *domain.Catalog) (*Result, error) {
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	tables := cat.Tables()

	ix, err := BuildKeyIndex(ctx, tables, a.norm, IndexOptions{
		Workers: a.opts.Workers,
		Exclude: a.excluded,
	})
	if err != nil {
		return nil, fmt.Errorf("building key index: %w", err)
	}

	m := newMatcher(tables, ix, a.norm, a.opts, a.excluded, a.logger)
	var proposals []Proposal
	for _, k := range a.strategies {
		ps, err := m.run(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("running %s strategy: %w", k, err)
		}
		proposals = append(proposals, ps...)
	}

	winners, ambiguous, err := Resolve(proposals)
	if err != nil {
		return nil, err
	}
	for _, amb := range ambiguous {
		a.logger.Debug("ambiguous weak association dropped",
			slog.String("left", amb.Tables[0].String()),
			slog.String("right", amb.Tables[1].String()),
			slog.Int("candidates", len(amb.Candidates)),
			slog.String("best", amb.Candidates[0].Source.String()+" -> "+amb.Candidates[0].Target.String()),
		)
	}

	kept, excluded := ExcludeDeclared(tables, winners)

	return newResult(kept, excluded, ambiguous, Stats{
		Tables:        len(tables),
		CandidateKeys: ix.Len(),
		Proposals:     len(proposals),
	}), nil
}

func (a *Analyzer) excluded(ref domain.ColumnRef) bool {
	if len(a.opts.ExcludeColumns) == 0 {
		return false
	}
	short := strings.ToLower(ref.Table.Name + "." + ref.Column)
	full := strings.ToLower(ref.String())
	for _, pattern := range a.opts.ExcludeColumns {
		pattern = strings.ToLower(pattern)
		if ok, _ := path.Match(pattern, short); ok {
			return true
		}
		if ok, _ := path.Match(pattern, full); ok {
			return true
		}
	}
	return false
}
