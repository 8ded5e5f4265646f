package association

import (
	"context"
	"runtime"
	"slices"

	"github.com/relscope/relscope/internal/core/domain"
	"golang.org/x/sync/errgroup"
)

// KeyIndex maps a key token to every candidate key exposing it, so tables
// are only compared when they share a token.
type KeyIndex struct {
	buckets map[string][]CandidateKey
	tokens  []string
	count   int
}

// IndexOptions tunes BuildKeyIndex.
type IndexOptions struct {
	// Workers bounds parallel extraction. Zero means runtime.NumCPU().
	Workers int
	// Exclude drops candidate key columns before they are indexed.
	Exclude func(domain.ColumnRef) bool
}

// BuildKeyIndex extracts candidate keys for every table on a bounded worker
// pool and merges them, in table order, into a single index.
func BuildKeyIndex(ctx context.Context, tables []*domain.Table, n *Normalizer, opts IndexOptions) (*KeyIndex, error) {
	results := make([][]CandidateKey, len(tables))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(opts.Workers))
	for i, t := range tables {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			keys, err := ExtractCandidateKeys(t, n)
			if err != nil {
				return err
			}
			results[i] = keys
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ix := &KeyIndex{buckets: make(map[string][]CandidateKey)}
	for _, keys := range results {
		for _, k := range keys {
			if opts.Exclude != nil && opts.Exclude(k.Ref()) {
				continue
			}
			if _, ok := ix.buckets[k.Token]; !ok {
				ix.tokens = append(ix.tokens, k.Token)
			}
			ix.buckets[k.Token] = append(ix.buckets[k.Token], k)
			ix.count++
		}
	}
	slices.Sort(ix.tokens)
	return ix, nil
}

// Lookup returns the candidate keys indexed under token.
func (ix *KeyIndex) Lookup(token string) []CandidateKey {
	return ix.buckets[token]
}

// Tokens returns every indexed token in sorted order.
func (ix *KeyIndex) Tokens() []string {
	return ix.tokens
}

// Len is the number of indexed candidate keys.
func (ix *KeyIndex) Len() int {
	return ix.count
}

// PrimaryKeys returns every single-column primary key in token order.
func (ix *KeyIndex) PrimaryKeys() []CandidateKey {
	var out []CandidateKey
	for _, tok := range ix.tokens {
		for _, k := range ix.buckets[tok] {
			if k.Kind == KeyPrimary {
				out = append(out, k)
			}
		}
	}
	return out
}

func workerCount(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}
