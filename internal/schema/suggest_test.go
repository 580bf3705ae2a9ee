package schema_test

import (
	"testing"

	"dqc/internal/schema"

	"github.com/stretchr/testify/assert"
)

func TestSuggest(t *testing.T) {
	tables := []string{"customer_addresses", "customers", "order_items", "orders", "payments"}

	assert.Equal(t, []string{"customer_addresses", "customers"}, schema.Suggest("CUSTOMER", tables))
	assert.Equal(t, []string{"orders"}, schema.Suggest("ordres", tables))
	assert.Empty(t, schema.Suggest("zzzzzzzz", tables))
	assert.Empty(t, schema.Suggest("", tables))
}

func TestSuggest_Capped(t *testing.T) {
	tables := []string{"log_a", "log_b", "log_c", "log_d"}
	assert.Len(t, schema.Suggest("log", tables), 3)
}

func TestAnalyzeMeaning(t *testing.T) {
	assert.Equal(t, "customer name", schema.AnalyzeMeaning("cust_nm"))
	assert.Equal(t, "created date", schema.AnalyzeMeaning("CRE_DT"))
	assert.Equal(t, "amount", schema.AnalyzeMeaning("amount"))
}

func TestContextRank(t *testing.T) {
	name := &schema.Column{Name: "cust_nm"}
	email := &schema.Column{Name: "email"}
	created := &schema.Column{Name: "created_at"}
	blob := &schema.Column{Name: "payload"}

	assert.Less(t, schema.ContextRank(name), schema.ContextRank(email))
	assert.Less(t, schema.ContextRank(email), schema.ContextRank(created))
	assert.Less(t, schema.ContextRank(created), schema.ContextRank(blob))
}
