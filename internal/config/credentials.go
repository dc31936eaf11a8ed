package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/rickgao/nifty-data/internal/auth"
)

// LoadCredentials reads broker credentials from SHOONYA_* environment
// variables. When secretsPath is set, the dotenv file is loaded first;
// variables already in the environment win. A missing secrets file is not an
// error.
func LoadCredentials(secretsPath string) (auth.Credentials, error) {
	var creds auth.Credentials

	if secretsPath != "" {
		if err := godotenv.Load(secretsPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return creds, fmt.Errorf("load secrets file %s: %w", secretsPath, err)
		}
	}

	if err := env.Parse(&creds); err != nil {
		return creds, fmt.Errorf("parse credentials: %w", err)
	}
	if err := creds.Validate(); err != nil {
		return creds, err
	}
	return creds, nil
}
