package config

import (
	"errors"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/gophwallet/internal/flagx"
)

// parseEnv loads the .env file named by -e/-env (or ./.env when present) into
// the process environment and then decodes GOPHWALLET_* variables onto
// config. Variables already set in the environment win over the file.
func parseEnv(config *Config, args []string) {
	if path := flagx.EnvFileFlags(args); path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	} else {
		_ = godotenv.Load()
	}

	if err := envdecode.Decode(config); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		panic(err)
	}
}
