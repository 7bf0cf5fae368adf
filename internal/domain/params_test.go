package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultParams_Values(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 60, p.Int(ParamEntryMinScore, 0))
	assert.Equal(t, 7, p.Int(ParamMinObsBuyers, 0))
	assert.Equal(t, 6, p.Int(ParamMinObsUnique, 0))
	assert.InDelta(t, 0.70, p.Float(ParamSameFunderLimit, 0), 0.0001)
	assert.InDelta(t, 0.75, p.Float(ParamSameFunderFatal, 0), 0.0001)
	assert.Equal(t, 20, p.Int(ParamApexScoreBoost, 0))
	assert.Equal(t, 60, p.Int(ParamCooldownSec, 0))
}

func TestParams_MissingKeyUsesDefault(t *testing.T) {
	p := Params{}
	assert.Equal(t, 42, p.Int("NOPE", 42))
	assert.InDelta(t, 1.5, p.Float("NOPE", 1.5), 0.0001)
}

func TestParams_IntTruncates(t *testing.T) {
	p := Params{ParamEntryMinScore: 60.9}
	assert.Equal(t, 60, p.Int(ParamEntryMinScore, 0))
}

func TestParams_MergeOverrideWins(t *testing.T) {
	base := DefaultParams()
	merged := base.Merge(Params{ParamEntryMinScore: 55, "EXTRA": 1})

	assert.InDelta(t, 55.0, merged[ParamEntryMinScore], 0.0001)
	assert.InDelta(t, 1.0, merged["EXTRA"], 0.0001)
	// el base no se muta
	assert.InDelta(t, 60.0, base[ParamEntryMinScore], 0.0001)
	_, ok := base["EXTRA"]
	assert.False(t, ok)
}

func TestParams_KeysSorted(t *testing.T) {
	p := Params{"B": 1, "A": 2, "C": 3}
	assert.Equal(t, []string{"A", "B", "C"}, p.Keys())
}
