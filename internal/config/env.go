package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// TelegramEnv holds the Telegram gateway settings read from the environment.
type TelegramEnv struct {
	Token       string `env:"GUESSBOT_TELEGRAM_TOKEN,required,notEmpty"`
	PollTimeout int    `env:"GUESSBOT_TELEGRAM_POLL_TIMEOUT" envDefault:"60"`
	Debug       bool   `env:"GUESSBOT_TELEGRAM_DEBUG"`
}

// AuthEnv holds the shared secret sent to the hello token validator.
type AuthEnv struct {
	Secret string `env:"GUESSBOT_AUTH_SECRET"`
}

// LoadDotEnv loads the given .env files (".env" if none) into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ParseTelegramEnv reads TelegramEnv from the environment.
func ParseTelegramEnv() (TelegramEnv, error) {
	var cfg TelegramEnv
	if err := env.Parse(&cfg); err != nil {
		return TelegramEnv{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ParseAuthEnv reads AuthEnv from the environment.
func ParseAuthEnv() (AuthEnv, error) {
	var cfg AuthEnv
	if err := env.Parse(&cfg); err != nil {
		return AuthEnv{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
