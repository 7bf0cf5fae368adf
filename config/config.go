package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del backtester.
type Config struct {
	DB     DBConfig     `yaml:"db"`
	Trade  TradeConfig  `yaml:"trade"`
	Sweep  SweepConfig  `yaml:"sweep"`
	Report ReportConfig `yaml:"report"`
	Log    LogConfig    `yaml:"log"`
}

// DBConfig apunta al histórico SQLite que deja el recolector.
type DBConfig struct {
	Path   string `yaml:"path"`                                         // ruta al archivo; el flag --db la pisa
	Origin string `yaml:"origin" default:"pumpfun" validate:"required"` // launchpad a backtestear
}

// TradeConfig son los parámetros de ejecución simulada. No participan en el
// sweep; el grid solo barre parámetros de estrategia.
type TradeConfig struct {
	TakeProfit   float64 `yaml:"take_profit" default:"0.35" validate:"gt=0"`
	StopLoss     float64 `yaml:"stop_loss" default:"0.25" validate:"gt=0"`
	MaxHoldSec   int64   `yaml:"max_hold_sec" default:"900" validate:"gt=0"`
	SizeSmallSOL float64 `yaml:"size_small_sol" default:"0.1" validate:"gt=0"`
	SizeApexSOL  float64 `yaml:"size_apex_sol" default:"0.4" validate:"gt=0"`
}

// SweepConfig controla las restricciones de factibilidad y el paralelismo.
type SweepConfig struct {
	MinTrades      int     `yaml:"min_trades" default:"10" validate:"min=0"`
	MaxDrawdownCap float64 `yaml:"max_drawdown_cap" default:"0.4" validate:"gt=0,lte=1"`
	Workers        int     `yaml:"workers" validate:"min=0"` // 0 = runtime.NumCPU()×2
}

// ReportConfig controla los reportes de salida.
type ReportConfig struct {
	OutDir  string `yaml:"out_dir" default:"out/"`
	Formats string `yaml:"formats" default:"csv,json,parquet"` // lista separada por comas
	Table   bool   `yaml:"table"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"text" validate:"oneof=text json"`
}

// Load carga la configuración desde el YAML opcional y el .env si existe.
// Con ruta vacía devuelve la configuración por defecto. Precedencia:
// entorno > YAML > defaults.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	// defaults.Set solo rellena campos en cero, así que corre al final.
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: apply defaults: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: validate: %w", err)
	}
	for _, format := range cfg.FormatList() {
		switch format {
		case "csv", "json", "parquet":
		default:
			return nil, fmt.Errorf("config.Load: unknown report format %q", format)
		}
	}

	return &cfg, nil
}

// FormatList devuelve los formatos de reporte normalizados.
func (c *Config) FormatList() []string {
	var out []string
	for _, part := range strings.Split(c.Report.Formats, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BACKTEST_DB"); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv("BACKTEST_ORIGIN"); v != "" {
		cfg.DB.Origin = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
