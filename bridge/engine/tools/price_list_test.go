package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ZanzyTHEbar/chatbridge/bridge/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const priceNote = "Los precios mostrados son aproximados."

// stubCatalog scripts search results.
type stubCatalog struct {
	entries []catalog.Entry
	query   string
}

func (s *stubCatalog) Search(query string) []catalog.Entry {
	s.query = query
	return s.entries
}

func priceList(t *testing.T, cat Catalog, args string) PriceListResult {
	t.Helper()
	tool := NewPriceListTool(cat, priceNote)
	out, err := tool.Invoke(context.Background(), json.RawMessage(args))
	require.NoError(t, err)
	result, ok := out.(PriceListResult)
	require.True(t, ok)
	return result
}

func TestPriceListReturnsMatchesWithNote(t *testing.T) {
	cat := &stubCatalog{entries: []catalog.Entry{
		{Name: "Botox Capilar", Price: "120 €"},
		{Name: "Botox Facial", Price: "250 €"},
	}}

	result := priceList(t, cat, `{"name": "botox"}`)
	require.Len(t, result.Resultados, 2)
	assert.Equal(t, "botox", cat.query)
	assert.Empty(t, result.Mensaje)
	assert.Equal(t, priceNote, result.Nota, "the disclaimer accompanies every result")
}

func TestPriceListNoMatches(t *testing.T) {
	result := priceList(t, &stubCatalog{}, `{"name": "criolipólisis"}`)
	assert.Empty(t, result.Resultados)
	assert.Contains(t, result.Mensaje, "criolipólisis")
	assert.Equal(t, priceNote, result.Nota)
}

func TestPriceListBlankQuery(t *testing.T) {
	cat := &stubCatalog{entries: []catalog.Entry{{Name: "x", Price: "1"}}}

	result := priceList(t, cat, `{"name": "   "}`)
	assert.Empty(t, result.Resultados)
	assert.NotEmpty(t, result.Mensaje)
	assert.Equal(t, priceNote, result.Nota)
	assert.Empty(t, cat.query, "a blank query must not hit the catalog")
}

func TestPriceListResultSerialization(t *testing.T) {
	result := PriceListResult{
		Resultados: []catalog.Entry{{Name: "Botox", Price: "250 €"}},
		Nota:       priceNote,
	}
	payload, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"nombre":"Botox"`)
	assert.Contains(t, string(payload), `"nota"`)
	assert.NotContains(t, string(payload), `"mensaje"`, "empty message is omitted")
}
