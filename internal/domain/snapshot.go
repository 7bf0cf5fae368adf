package domain

// Snapshot es una observación puntual del estado on-chain de un token recién lanzado.
// La ventana de observación acumula actividad desde el lanzamiento hasta ts.
type Snapshot struct {
	Mint       string  // dirección del mint del token
	TS         int64   // unix seconds
	Buyers     int     // compradores acumulados en la ventana
	Unique     int     // funders únicos entre los compradores
	Same       int     // compras atribuidas al mismo funder dominante
	PriceJumps int     // saltos bruscos de precio detectados
	Depth      float64 // profundidad estimada del book en SOL
	Origin     string  // launchpad de origen, p.ej. "pumpfun"
}

// Quote es un precio de fill estimado para un tamaño de orden concreto.
// Cada (mint, tamaño) forma su propio stream ordenado por ts.
type Quote struct {
	Mint     string
	TS       int64   // unix seconds
	SizeSOL  float64 // tamaño de orden simulado en SOL
	PriceSOL float64 // est_fill_price_sol: precio medio de fill estimado
}

// Action es la decisión de entrada para un snapshot.
type Action int

const (
	ActionNone Action = iota
	ActionSmall
	ActionApex
)

func (a Action) String() string {
	switch a {
	case ActionSmall:
		return "SMALL"
	case ActionApex:
		return "APEX"
	default:
		return "NONE"
	}
}

// TradeState es el estado de trading de un mint durante el replay.
// Se crea flat por mint y solo lo muta el simulador al resolver un trade.
type TradeState struct {
	InPosition    bool
	CooldownUntil int64 // unix seconds; 0 = sin cooldown activo
}

// TradeSettings son los parámetros de ejecución fijos de una simulación.
// A diferencia de Params, no participan en el sweep.
type TradeSettings struct {
	TakeProfit   float64 // fracción de retorno para salir con ganancia
	StopLoss     float64 // fracción de retorno (positiva) para cortar pérdidas
	MaxHoldSec   int64   // tiempo máximo de posición antes de salida forzosa
	SizeSmallSOL float64
	SizeApexSOL  float64
}

// DefaultTradeSettings devuelve los valores de ejecución por defecto.
func DefaultTradeSettings() TradeSettings {
	return TradeSettings{
		TakeProfit:   0.35,
		StopLoss:     0.25,
		MaxHoldSec:   900,
		SizeSmallSOL: 0.1,
		SizeApexSOL:  0.4,
	}
}

// SizeFor devuelve el tamaño de orden en SOL para una acción de entrada.
func (t TradeSettings) SizeFor(a Action) float64 {
	if a == ActionApex {
		return t.SizeApexSOL
	}
	return t.SizeSmallSOL
}
