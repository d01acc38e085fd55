package web

import "time"

// Config is the env configuration of the web layer.
type Config struct {
	BaseURL       string        `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
	ViewCookie    string        `env:"VIEW_COOKIE_NAME" envDefault:"seopilot_view"`
	ViewTTL       time.Duration `env:"VIEW_TTL" envDefault:"30m"`
	SweepInterval time.Duration `env:"VIEW_SWEEP_INTERVAL" envDefault:"1m"`
	ReadyWait     time.Duration `env:"VIEW_READY_WAIT" envDefault:"750ms"`
	DatastarURL   string        `env:"DATASTAR_SCRIPT_URL" envDefault:"https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"`
}
