package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	Model         string `env:"MODEL" envDefault:"gpt-4o"`

	// RedisAddr empty means the in-memory store.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	AuditionBatch     int           `env:"AUDITION_BATCH_SIZE" envDefault:"3"`
	DefaultMaxPlayers int           `env:"DEFAULT_MAX_PLAYERS" envDefault:"12"`
}

func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}
