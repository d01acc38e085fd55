package localauth

import "time"

// Config holds the local provider settings.
type Config struct {
	RequireConfirmation bool          `env:"LOCALAUTH_REQUIRE_CONFIRMATION" envDefault:"false"`
	BcryptCost          int           `env:"LOCALAUTH_BCRYPT_COST" envDefault:"10"`
	ConfirmLinkTTL      time.Duration `env:"LOCALAUTH_CONFIRM_LINK_TTL" envDefault:"24h"`
}
