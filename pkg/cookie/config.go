package cookie

// Config is the env-driven cookie configuration.
type Config struct {
	Secrets []string `env:"COOKIE_SECRETS,required" envSeparator:","`
	Secure  bool     `env:"COOKIE_SECURE" envDefault:"false"`
	MaxAge  int      `env:"COOKIE_MAX_AGE" envDefault:"0"`
}
