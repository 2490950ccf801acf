package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load populates cfg from environment variables declared with `env` tags.
//
//	type Config struct {
//	    Port  int    `env:"SEARCH_HTTP_PORT" envDefault:"8010"`
//	    Index string `env:"ELASTICSEARCH_INDEX" envDefault:"products"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
