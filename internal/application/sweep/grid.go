package sweep

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ranbysal/Slim4/internal/domain"
)

// Grid mapea nombre de parámetro a su lista de candidatos a barrer.
type Grid map[string][]float64

// ParseGrid interpreta el JSON del flag --grid. Cada valor lista se
// convierte en una dimensión del barrido; cada valor escalar se devuelve
// como override fijo para fusionar sobre los parámetros base antes de
// expandir. Listas vacías y valores no numéricos se rechazan.
func ParseGrid(raw []byte) (Grid, domain.Params, error) {
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, nil, fmt.Errorf("sweep.ParseGrid: invalid grid JSON: %w", err)
	}

	grid := make(Grid)
	fixed := make(domain.Params)
	for key, val := range decoded {
		switch v := val.(type) {
		case []any:
			if len(v) == 0 {
				return nil, nil, fmt.Errorf("sweep.ParseGrid: empty candidate list for %q", key)
			}
			dim := make([]float64, 0, len(v))
			for _, item := range v {
				f, ok := item.(float64)
				if !ok {
					return nil, nil, fmt.Errorf("sweep.ParseGrid: non-numeric candidate %v for %q", item, key)
				}
				dim = append(dim, f)
			}
			grid[key] = dim
		case float64:
			fixed[key] = v
		default:
			return nil, nil, fmt.Errorf("sweep.ParseGrid: unsupported value %v for %q", val, key)
		}
	}
	return grid, fixed, nil
}

// Combos enumera el producto cartesiano del grid bajo demanda, sin
// materializar todas las combinaciones. Las claves van ordenadas y la
// última varía más rápido, así el orden de enumeración es estable entre
// ejecuciones.
type Combos struct {
	keys []string
	dims [][]float64
	idx  []int
	done bool
}

// Combos construye el iterador sobre el grid.
func (g Grid) Combos() *Combos {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dims := make([][]float64, len(keys))
	for i, k := range keys {
		dims[i] = g[k]
	}
	return &Combos{keys: keys, dims: dims, idx: make([]int, len(keys))}
}

// Total devuelve cuántas combinaciones produce el iterador. Un grid
// vacío produce exactamente una combinación sin overrides.
func (c *Combos) Total() int {
	total := 1
	for _, dim := range c.dims {
		total *= len(dim)
	}
	return total
}

// Next devuelve el siguiente override del barrido. El segundo valor es
// false cuando el producto se agotó.
func (c *Combos) Next() (domain.Params, bool) {
	if c.done {
		return nil, false
	}

	override := make(domain.Params, len(c.keys))
	for i, k := range c.keys {
		override[k] = c.dims[i][c.idx[i]]
	}

	// Avanza como un odómetro: la última posición incrementa primero y
	// los acarreos se propagan hacia la izquierda.
	for i := len(c.idx) - 1; i >= 0; i-- {
		c.idx[i]++
		if c.idx[i] < len(c.dims[i]) {
			return override, true
		}
		c.idx[i] = 0
	}
	c.done = true
	return override, true
}
