// Package config loads typed configuration structs from environment variables.
//
// It wraps github.com/caarlos0/env/v11 for tag-driven parsing and
// github.com/joho/godotenv for an optional .env file, and caches each
// configuration type after the first successful parse.
package config
