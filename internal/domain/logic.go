package domain

import "math"

// SameFunderRatio calcula la concentración de compras del funder dominante.
//
// Fórmula: ratio = same / max(buyers, 1)
//
// Un ratio alto indica que "varios compradores" son en realidad la misma
// wallet fondeando desde distintas cuentas — el patrón clásico de wash trading.
func SameFunderRatio(s Snapshot) float64 {
	buyers := s.Buyers
	if buyers < 1 {
		buyers = 1
	}
	return float64(s.Same) / float64(buyers)
}

// SafetyGate aplica el veto duro previo al scoring.
// Devuelve false si el same-funder ratio supera SAME_FUNDER_FATAL;
// la igualdad exacta con el umbral pasa el gate.
func SafetyGate(s Snapshot, p Params) bool {
	fatal := p.Float(ParamSameFunderFatal, 0.75)
	return SameFunderRatio(s) <= fatal
}

// Conviction calcula el score aditivo 0–100 de un snapshot.
//
// Buckets:
//
//	buyers:  +30 (>= MIN_OBS_BUYERS) / +20 (== min-1) / +10 (== min-2)
//	unique:  +20 (>= MIN_OBS_UNIQUE) / +10 (== min-1)
//	jumps:   +30 (>= 3) / +20 (== 2) / +10 (== 1)
//	depth:   +10 (>= 3 SOL) / +5 (>= 2 SOL)
//
// Si el same-funder ratio supera SAME_FUNDER_LIMIT se resta una penalización
// lineal de hasta 40 puntos conforme el ratio se acerca a SAME_FUNDER_FATAL.
// Los tiers bajos comparan con == (no >=): un token por debajo de min-2
// compradores no puntúa nada en ese bucket.
func Conviction(s Snapshot, p Params) int {
	minBuyers := p.Int(ParamMinObsBuyers, 7)
	minUnique := p.Int(ParamMinObsUnique, 6)

	score := 0

	switch {
	case s.Buyers >= minBuyers:
		score += 30
	case s.Buyers == max(0, minBuyers-1):
		score += 20
	case s.Buyers == max(0, minBuyers-2):
		score += 10
	}

	switch {
	case s.Unique >= minUnique:
		score += 20
	case s.Unique == max(0, minUnique-1):
		score += 10
	}

	switch {
	case s.PriceJumps >= 3:
		score += 30
	case s.PriceJumps == 2:
		score += 20
	case s.PriceJumps == 1:
		score += 10
	}

	switch {
	case s.Depth >= 3:
		score += 10
	case s.Depth >= 2:
		score += 5
	}

	limit := p.Float(ParamSameFunderLimit, 0.7)
	fatal := p.Float(ParamSameFunderFatal, 0.75)
	ratio := SameFunderRatio(s)
	if ratio > limit {
		span := math.Max(1e-6, fatal-limit)
		over := math.Min(ratio-limit, span)
		score -= int(math.Round(40.0 * (over / span)))
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Decide aplica la máquina de decisión de entrada sobre un snapshot.
//
// Orden de evaluación: posición abierta → cooldown → safety gate → score.
// APEX exige además evidencia cruda más fuerte que SMALL: no basta con que el
// score supere entry_min + boost, los buyers y unique también deben superarse.
func Decide(state TradeState, s Snapshot, p Params) Action {
	if state.InPosition {
		return ActionNone
	}
	if s.TS < state.CooldownUntil {
		return ActionNone
	}
	if !SafetyGate(s, p) {
		return ActionNone
	}

	score := Conviction(s, p)
	entryMin := p.Int(ParamEntryMinScore, 60)
	apexReq := entryMin + p.Int(ParamApexScoreBoost, 20)
	minBuyers := p.Int(ParamMinObsBuyers, 7)
	minUnique := p.Int(ParamMinObsUnique, 6)

	if score >= apexReq && s.Buyers >= minBuyers+1 && s.Unique >= minUnique {
		return ActionApex
	}
	if score >= entryMin {
		return ActionSmall
	}
	return ActionNone
}
