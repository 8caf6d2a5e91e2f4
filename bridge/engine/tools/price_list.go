package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/chatbridge/bridge/catalog"
)

// Catalog looks up procedures and treatments in the clinic's price list.
// The interface is defined here, by its consumer; bridge/catalog provides
// the CSV-backed implementation.
type Catalog interface {
	Search(query string) []catalog.Entry
}

// PriceListResult carries matches (or a not-found message) plus the
// mandatory approximate-prices disclaimer.
type PriceListResult struct {
	Resultados []catalog.Entry `json:"resultados,omitempty"`
	Mensaje    string          `json:"mensaje,omitempty"`
	Nota       string          `json:"nota"`
}

// PriceListTool resolves price questions against the catalog.
type PriceListTool struct {
	catalog Catalog
	note    string
}

func NewPriceListTool(catalog Catalog, note string) *PriceListTool {
	return &PriceListTool{catalog: catalog, note: note}
}

func (t *PriceListTool) Name() string { return "procedures_and_treatments_price_list" }

func (t *PriceListTool) Description() string {
	return "Looks up the approximate price of a procedure or treatment in the " +
		"clinic's price list. The search ignores case, accents, and word order."
}

func (t *PriceListTool) Schema() []byte { return []byte(PriceListSchema) }

func (t *PriceListTool) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("decode price_list args: %w", err)
	}

	query := strings.TrimSpace(in.Name)
	if query == "" {
		return PriceListResult{
			Mensaje: "Indica el nombre del tratamiento o procedimiento a consultar.",
			Nota:    t.note,
		}, nil
	}

	matches := t.catalog.Search(query)
	if len(matches) == 0 {
		return PriceListResult{
			Mensaje: fmt.Sprintf("No se encontraron tratamientos que coincidan con %q.", query),
			Nota:    t.note,
		}, nil
	}
	return PriceListResult{Resultados: matches, Nota: t.note}, nil
}
