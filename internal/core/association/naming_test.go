package association

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalizer(t *testing.T, rules NamingRules) *Normalizer {
	t.Helper()
	n, err := NewNormalizer(rules)
	require.NoError(t, err)
	return n
}

func TestNormalizer_Token(t *testing.T) {
	t.Parallel()
	n := DefaultNormalizer()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"upper snake", "CUSTOMER_ID", "CUSTOMERID"},
		{"pascal", "CustomerId", "CUSTOMERID"},
		{"flat lower", "customerid", "CUSTOMERID"},
		{"kebab", "customer-id", "CUSTOMERID"},
		{"spaces", "Customer ID", "CUSTOMERID"},
		{"leading and trailing separators", "__customer__id__", "CUSTOMERID"},
		{"empty", "", ""},
		{"only separators", "__", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, n.Token(tt.in))
		})
	}
}

func TestNormalizer_Words(t *testing.T) {
	t.Parallel()
	n := DefaultNormalizer()

	tests := []struct {
		in   string
		want []string
	}{
		{"billingCustomerId", []string{"BILLING", "CUSTOMER", "ID"}},
		{"BILLING_CUSTOMER_ID", []string{"BILLING", "CUSTOMER", "ID"}},
		{"HTTPServerID", []string{"HTTP", "SERVER", "ID"}},
		{"XCUSTOMERID", []string{"XCUSTOMERID"}},
		{"order2Id", []string{"ORDER2", "ID"}},
		{"BACKUP_SUPPLIER_ID", []string{"BACKUP", "SUPPLIER", "ID"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, n.Words(tt.in))
		})
	}
}

func TestNormalizer_Singular(t *testing.T) {
	t.Parallel()
	n := DefaultNormalizer()

	assert.Equal(t, "ORDER", n.Singular("ORDERS"))
	assert.Equal(t, "CUSTOMER", n.Singular("customer"))
	assert.Equal(t, "ORDERITEM", n.Singular("order_items"))
	assert.Equal(t, "ORDERITEM", n.Singular("OrderItems"))
	assert.Equal(t, "", n.Singular(""))

	// Latin plurals follow inflection: "data" singularizes to DATUM, so
	// data_id only matches a data table once an irregular rule says so.
	assert.Equal(t, "DATUM", n.Singular("data"))
	assert.False(t, n.IsNaturalID("data", "DATAID"))
	assert.Equal(t, "DATUMID", n.KeyToken("data", "ID"))

	keep := normalizer(t, NamingRules{Irregular: map[string]string{"data": "data"}})
	assert.Equal(t, "DATA", keep.Singular("data"))
	assert.Equal(t, "DATAID", keep.KeyToken("data", "ID"))
}

func TestNormalizer_IrregularAndCustomSingularizer(t *testing.T) {
	t.Parallel()

	irregular := normalizer(t, NamingRules{Irregular: map[string]string{"people": "folk"}})
	assert.Equal(t, "FOLK", irregular.Singular("PEOPLE"))
	assert.Equal(t, "STAFFFOLK", irregular.Singular("staff_people"))

	custom := normalizer(t, NamingRules{Singularize: func(s string) string {
		return strings.TrimSuffix(s, "z")
	}})
	assert.Equal(t, "WIDGET", custom.Singular("widgetz"))
	assert.Equal(t, "ORDERS", custom.Singular("orders"))
}

func TestNormalizer_Abbreviations(t *testing.T) {
	t.Parallel()
	n := normalizer(t, NamingRules{Abbreviations: map[string]string{
		"cust": "customer",
		"PO":   "purchase_order",
	}})

	assert.Equal(t, "CUSTOMERID", n.Token("CUST_ID"))
	assert.Equal(t, "CUSTOMERID", n.Token("custId"))
	assert.Equal(t, []string{"PURCHASE", "ORDER", "NUMBER"}, n.Words("po_number"))
	// Abbreviations are whole words only.
	assert.Equal(t, "CUSTODYID", n.Token("custody_id"))
}

func TestNormalizer_IDSuffixes(t *testing.T) {
	t.Parallel()

	def := DefaultNormalizer()
	assert.True(t, def.IsIDSuffix("ID"))
	assert.False(t, def.IsIDSuffix("KEY"))
	assert.True(t, def.IsNaturalID("CUSTOMER", "CUSTOMERID"))
	assert.True(t, def.IsNaturalID("orders", "ORDERID"))
	assert.True(t, def.IsNaturalID("orders", "ID"))
	assert.False(t, def.IsNaturalID("orders", "CUSTOMERID"))
	assert.Equal(t, "CUSTOMERID", def.KeyToken("customer", "ID"))
	assert.Equal(t, "EMAIL", def.KeyToken("customer", "EMAIL"))

	keyed := normalizer(t, NamingRules{IDSuffixes: []string{"id", "Key"}})
	assert.True(t, keyed.IsNaturalID("customer", "CUSTOMERKEY"))
	assert.Equal(t, "CUSTOMERKEY", keyed.KeyToken("customers", "KEY"))

	empty := normalizer(t, NamingRules{IDSuffixes: []string{"", "_"}})
	assert.True(t, empty.IsIDSuffix(DefaultIDSuffix))
}

func TestNewNormalizer_ConflictingRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rules NamingRules
	}{
		{
			name:  "abbreviations differing in case",
			rules: NamingRules{Abbreviations: map[string]string{"cust": "customer", "CUST": "custodian"}},
		},
		{
			name:  "irregulars differing in separators",
			rules: NamingRules{Irregular: map[string]string{"Order_Lines": "order_line", "orderlines": "line"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for range 20 {
				_, err := NewNormalizer(tt.rules)
				require.ErrorIs(t, err, ErrConflictingRules)
			}
		})
	}
}

func TestNewNormalizer_EquivalentRulesAgree(t *testing.T) {
	t.Parallel()
	n := normalizer(t, NamingRules{
		Abbreviations: map[string]string{"cust": "customer", "CUST": "Customer"},
		Irregular:     map[string]string{"Order_Lines": "order_entry", "orderlines": "OrderEntry"},
	})
	assert.Equal(t, "CUSTOMERID", n.Token("cust_id"))
	assert.Equal(t, "ORDERENTRY", n.Singular("order_lines"))
	assert.Equal(t, "ORDERENTRY", n.Singular("OrderLines"))
}
