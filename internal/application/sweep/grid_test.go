package sweep

import (
	"testing"

	"github.com/ranbysal/Slim4/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- ParseGrid ---

func TestParseGrid_ListsAndScalars(t *testing.T) {
	raw := []byte(`{"ENTRY_MIN_SCORE": [55, 60], "COOLDOWN_SEC": 120, "SAME_FUNDER_LIMIT": [0.6, 0.7, 0.8]}`)

	grid, fixed, err := ParseGrid(raw)
	require.NoError(t, err)

	assert.Equal(t, Grid{
		"ENTRY_MIN_SCORE":   {55, 60},
		"SAME_FUNDER_LIMIT": {0.6, 0.7, 0.8},
	}, grid)
	assert.Equal(t, domain.Params{"COOLDOWN_SEC": 120}, fixed)
}

func TestParseGrid_InvalidJSON(t *testing.T) {
	_, _, err := ParseGrid([]byte(`{"ENTRY_MIN_SCORE": [55`))
	assert.Error(t, err)
}

func TestParseGrid_EmptyListRejected(t *testing.T) {
	_, _, err := ParseGrid([]byte(`{"ENTRY_MIN_SCORE": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty candidate list")
}

func TestParseGrid_NonNumericCandidateRejected(t *testing.T) {
	_, _, err := ParseGrid([]byte(`{"ENTRY_MIN_SCORE": [55, "alto"]}`))
	assert.Error(t, err)
}

func TestParseGrid_UnsupportedValueRejected(t *testing.T) {
	_, _, err := ParseGrid([]byte(`{"ENTRY_MIN_SCORE": "55"}`))
	assert.Error(t, err)
}

// --- Combos ---

func TestCombos_EnumerationOrder(t *testing.T) {
	// Claves ordenadas (A antes de B) y la última variando más rápido.
	grid := Grid{
		"B_KEY": {1, 2},
		"A_KEY": {10, 20},
	}

	combos := grid.Combos()
	assert.Equal(t, 4, combos.Total())

	want := []domain.Params{
		{"A_KEY": 10, "B_KEY": 1},
		{"A_KEY": 10, "B_KEY": 2},
		{"A_KEY": 20, "B_KEY": 1},
		{"A_KEY": 20, "B_KEY": 2},
	}
	for i, expected := range want {
		got, ok := combos.Next()
		require.True(t, ok, "combo %d", i)
		assert.Equal(t, expected, got)
	}

	_, ok := combos.Next()
	assert.False(t, ok)
}

func TestCombos_EmptyGridYieldsOneEmptyOverride(t *testing.T) {
	combos := Grid{}.Combos()
	assert.Equal(t, 1, combos.Total())

	override, ok := combos.Next()
	require.True(t, ok)
	assert.Empty(t, override)

	_, ok = combos.Next()
	assert.False(t, ok)
}

func TestCombos_SingleKey(t *testing.T) {
	combos := Grid{"ENTRY_MIN_SCORE": {55, 60, 65}}.Combos()
	assert.Equal(t, 3, combos.Total())

	seen := []float64{}
	for {
		override, ok := combos.Next()
		if !ok {
			break
		}
		seen = append(seen, override["ENTRY_MIN_SCORE"])
	}
	assert.Equal(t, []float64{55, 60, 65}, seen)
}
