package domain

import "sort"

// Claves de parámetros de estrategia. Son las mismas claves que acepta el grid
// JSON del sweep y las que aparecen en los reportes (columnas param.*).
const (
	ParamEntryMinScore   = "ENTRY_MIN_SCORE"
	ParamMinObsBuyers    = "MIN_OBS_BUYERS"
	ParamMinObsUnique    = "MIN_OBS_UNIQUE"
	ParamSameFunderLimit = "SAME_FUNDER_LIMIT"
	ParamSameFunderFatal = "SAME_FUNDER_FATAL"
	ParamApexScoreBoost  = "APEX_SCORE_BOOST"
	ParamCooldownSec     = "COOLDOWN_SEC"
)

// Params es el set de parámetros de estrategia de un run. Los valores viven
// como float64; los umbrales enteros se truncan al leer, igual que hace el
// scorer con sus defaults.
type Params map[string]float64

// DefaultParams devuelve los parámetros base de la estrategia.
// Los valores del grid los sobreescriben combinación a combinación.
func DefaultParams() Params {
	return Params{
		ParamEntryMinScore:   60,
		ParamMinObsBuyers:    7,
		ParamMinObsUnique:    6,
		ParamSameFunderLimit: 0.70,
		ParamSameFunderFatal: 0.75,
		ParamApexScoreBoost:  20,
		ParamCooldownSec:     60,
	}
}

// Float devuelve el valor de la clave, o def si no está presente.
func (p Params) Float(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Int devuelve el valor truncado a entero, o def si no está presente.
func (p Params) Int(key string, def int) int {
	if v, ok := p[key]; ok {
		return int(v)
	}
	return def
}

// Merge devuelve una copia de p con los overrides aplicados encima.
// Ni p ni overrides se modifican.
func (p Params) Merge(overrides Params) Params {
	out := make(Params, len(p)+len(overrides))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Keys devuelve las claves presentes en orden alfabético, para reportes estables.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
