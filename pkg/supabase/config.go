package supabase

import "time"

// Config holds the project connection settings.
type Config struct {
	URL     string        `env:"SUPABASE_URL,required"`
	AnonKey string        `env:"SUPABASE_ANON_KEY,required"`
	Timeout time.Duration `env:"SUPABASE_TIMEOUT" envDefault:"10s"`
}

// NewFromConfig creates a Project from cfg. opts are applied after the
// config values.
func NewFromConfig(cfg Config, opts ...Option) (*Project, error) {
	all := make([]Option, 0, len(opts)+1)
	if cfg.Timeout > 0 {
		all = append(all, WithTimeout(cfg.Timeout))
	}
	all = append(all, opts...)
	return New(cfg.URL, cfg.AnonKey, all...)
}
