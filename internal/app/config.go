package app

import (
	"github.com/dmitrymomot/seopilot/internal/web"
	"github.com/dmitrymomot/seopilot/pkg/cookie"
	"github.com/dmitrymomot/seopilot/pkg/edge"
	"github.com/dmitrymomot/seopilot/pkg/httpserver"
	"github.com/dmitrymomot/seopilot/pkg/localauth"
	"github.com/dmitrymomot/seopilot/pkg/ratelimiter"
)

// Auth providers selectable with AUTH_PROVIDER.
const (
	ProviderLocal    = "local"
	ProviderSupabase = "supabase"
)

// Config is the service configuration. Supabase settings are loaded
// separately because they are only required with the supabase provider.
type Config struct {
	Env           string `env:"APP_ENV" envDefault:"development"`
	Name          string `env:"APP_NAME" envDefault:"seopilot"`
	AuthProvider  string `env:"AUTH_PROVIDER" envDefault:"local"`
	CatalogPath   string `env:"PLAN_CATALOG_PATH"`
	ConfirmSecret string `env:"LOCALAUTH_CONFIRM_SECRET"`

	// ClientIPHeaders are trusted in order to find the client address.
	// Leave empty when the service is reachable without a proxy.
	ClientIPHeaders []string `env:"CLIENT_IP_HEADERS" envDefault:"CF-Connecting-IP,X-Forwarded-For,X-Real-IP" envSeparator:","`

	HTTP   httpserver.Config
	Web    web.Config
	Cookie cookie.Config
	Edge   edge.Config
	Local  localauth.Config

	AuthRate      ratelimiter.Config `envPrefix:"AUTH_RATE_"`
	FunctionsRate ratelimiter.Config `envPrefix:"FUNCTIONS_RATE_"`
}
