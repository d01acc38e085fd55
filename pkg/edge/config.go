package edge

// Config is the env-driven functions configuration.
type Config struct {
	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`
	JWTSecret       string `env:"SUPABASE_JWT_SECRET,required"`
	DefaultCurrency string `env:"CHECKOUT_DEFAULT_CURRENCY" envDefault:"usd"`
}
