package association

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/relscope/relscope/internal/core/domain"
)

// ErrInvariantViolation reports a bug in the engine itself, such as a
// strategy proposing a table association with itself.
var ErrInvariantViolation = errors.New("association invariant violated")

// Ambiguity records a table pair whose best proposals disagreed on which
// columns relate the two tables. No association is emitted for it.
type Ambiguity struct {
	Tables     [2]domain.TableRef `json:"tables"`
	Candidates []Proposal         `json:"candidates"`
}

// Resolve reduces all proposals to at most one per unordered table pair.
//
// Within a pair, proposals describing the same columns collapse to the most
// specific strategy. The best remaining proposal wins unless another one on
// different columns has the same score or belongs to the same strategy tier;
// then the pair is ambiguous and dropped. The outcome depends only on the
// set of proposals, never on their order.
func Resolve(proposals []Proposal) ([]Proposal, []Ambiguity, error) {
	groups := make(map[[2]domain.TableRef][]Proposal)
	for _, p := range proposals {
		if p.Source.Table == p.Target.Table {
			return nil, nil, fmt.Errorf("%w: %s proposal %s -> %s connects a table to itself",
				ErrInvariantViolation, p.Kind, p.Source, p.Target)
		}
		if !p.Kind.valid() {
			return nil, nil, fmt.Errorf("%w: proposal %s -> %s has unknown kind %d",
				ErrInvariantViolation, p.Source, p.Target, int(p.Kind))
		}
		key := p.tablePair()
		groups[key] = append(groups[key], p)
	}

	pairs := make([][2]domain.TableRef, 0, len(groups))
	for k := range groups {
		pairs = append(pairs, k)
	}
	slices.SortFunc(pairs, compareTablePairs)

	var (
		winners   []Proposal
		ambiguous []Ambiguity
	)
	for _, pair := range pairs {
		candidates := dedupeColumnPairs(groups[pair])
		slices.SortFunc(candidates, compareProposals)

		top := candidates[0]
		contested := []Proposal{top}
		for _, c := range candidates[1:] {
			if c.Score == top.Score || c.Kind.tier() == top.Kind.tier() {
				contested = append(contested, c)
			}
		}
		if len(contested) > 1 {
			ambiguous = append(ambiguous, Ambiguity{Tables: pair, Candidates: contested})
			continue
		}
		winners = append(winners, top)
	}
	return winners, ambiguous, nil
}

// dedupeColumnPairs keeps one proposal per unordered column pair.
func dedupeColumnPairs(ps []Proposal) []Proposal {
	best := make(map[[2]domain.ColumnRef]Proposal, len(ps))
	for _, p := range ps {
		key := p.columnPair()
		if cur, ok := best[key]; !ok || compareProposals(p, cur) < 0 {
			best[key] = p
		}
	}
	out := make([]Proposal, 0, len(best))
	for _, p := range best {
		out = append(out, p)
	}
	return out
}

// compareProposals is a total order: score descending, then strategy
// priority, key rank, endpoints and finally orientation.
func compareProposals(a, b Proposal) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	if c := cmp.Compare(a.KeyKind, b.KeyKind); c != 0 {
		return c
	}
	ap, bp := a.columnPair(), b.columnPair()
	if c := ap[0].Compare(bp[0]); c != 0 {
		return c
	}
	if c := ap[1].Compare(bp[1]); c != 0 {
		return c
	}
	return a.Source.Compare(b.Source)
}

func compareTablePairs(a, b [2]domain.TableRef) int {
	if c := a[0].Compare(b[0]); c != 0 {
		return c
	}
	return a[1].Compare(b[1])
}
