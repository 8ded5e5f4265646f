package association

import (
	"context"
	"testing"

	"github.com/relscope/relscope/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCandidateKeys(t *testing.T) {
	t.Parallel()
	n := DefaultNormalizer()

	tests := []struct {
		name  string
		table *tableBuilder
		want  []CandidateKey
	}{
		{
			name:  "bare primary key is qualified with the table name",
			table: newTable("customers", "id", "name").pk("id"),
			want: []CandidateKey{
				{Table: tbl("customers"), Column: "id", ColumnToken: "ID", Token: "CUSTOMERID", Kind: KeyPrimary, DataType: "integer"},
			},
		},
		{
			name:  "alternate keys follow the primary key",
			table: newTable("currency", "id", "iso_code").pk("id").unique("iso_code"),
			want: []CandidateKey{
				{Table: tbl("currency"), Column: "id", ColumnToken: "ID", Token: "CURRENCYID", Kind: KeyPrimary, DataType: "integer"},
				{Table: tbl("currency"), Column: "iso_code", ColumnToken: "ISOCODE", Token: "ISOCODE", Kind: KeyAlternate, DataType: "integer"},
			},
		},
		{
			name:  "primary key column is not repeated as alternate",
			table: newTable("region", "region_id").pk("region_id").unique("region_id"),
			want: []CandidateKey{
				{Table: tbl("region"), Column: "region_id", ColumnToken: "REGIONID", Token: "REGIONID", Kind: KeyPrimary, DataType: "integer"},
			},
		},
		{
			name:  "natural identifier without constraints",
			table: newTable("customer", "customer_id", "email"),
			want: []CandidateKey{
				{Table: tbl("customer"), Column: "customer_id", ColumnToken: "CUSTOMERID", Token: "CUSTOMERID", Kind: KeyNaturalID, DataType: "integer"},
			},
		},
		{
			name:  "composite keys are skipped",
			table: newTable("order_line", "order_id", "line_no").pk("order_id", "line_no").unique("order_id", "line_no"),
			want:  nil,
		},
		{
			name:  "column outside a composite key can still be natural",
			table: newTable("order_line", "id", "order_id", "line_no").pk("order_id", "line_no"),
			want: []CandidateKey{
				{Table: tbl("order_line"), Column: "id", ColumnToken: "ID", Token: "ORDERLINEID", Kind: KeyNaturalID, DataType: "integer"},
			},
		},
		{
			name:  "reference columns are not keys",
			table: newTable("orders", "customer_id", "total"),
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ExtractCandidateKeys(&tt.table.t, n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractCandidateKeys_UnknownColumn(t *testing.T) {
	t.Parallel()
	tb := newTable("customer", "id").pk("missing")

	_, err := ExtractCandidateKeys(&tb.t, DefaultNormalizer())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedCatalog)
}

func TestBuildKeyIndex(t *testing.T) {
	t.Parallel()
	cat := catalogOf(
		newTable("customer", "id").pk("id"),
		newTable("orders", "id", "customer_id").pk("id"),
		newTable("currency", "code").pk("code"),
		newTable("price", "code").unique("code"),
	)

	ix, err := BuildKeyIndex(context.Background(), cat.Tables(), DefaultNormalizer(), IndexOptions{Workers: 2})
	require.NoError(t, err)

	assert.Equal(t, 4, ix.Len())
	assert.Equal(t, []string{"CODE", "CUSTOMERID", "ORDERID"}, ix.Tokens())
	assert.Len(t, ix.Lookup("CODE"), 2)
	assert.Empty(t, ix.Lookup("ID"))

	var pks []domain.ColumnRef
	for _, k := range ix.PrimaryKeys() {
		pks = append(pks, k.Ref())
	}
	assert.Equal(t, []domain.ColumnRef{col("currency", "code"), col("customer", "id"), col("orders", "id")}, pks)
}

func TestBuildKeyIndex_Exclude(t *testing.T) {
	t.Parallel()
	cat := catalogOf(
		newTable("customer", "id").pk("id"),
		newTable("orders", "id").pk("id"),
	)

	ix, err := BuildKeyIndex(context.Background(), cat.Tables(), DefaultNormalizer(), IndexOptions{
		Exclude: func(ref domain.ColumnRef) bool { return ref.Table.Name == "orders" },
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Len())
	assert.Empty(t, ix.Lookup("ORDERID"))
}

func TestBuildKeyIndex_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cat := catalogOf(newTable("customer", "id").pk("id"))
	_, err := BuildKeyIndex(ctx, cat.Tables(), DefaultNormalizer(), IndexOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
