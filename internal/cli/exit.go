package cli

import (
	"errors"

	"github.com/rickgao/nifty-data/internal/auth"
	"github.com/rickgao/nifty-data/internal/feed"
	"github.com/rickgao/nifty-data/internal/market"
	"github.com/rickgao/nifty-data/internal/model"
	"github.com/rickgao/nifty-data/internal/session"
)

// Process exit codes.
const (
	ExitOK             = 0
	ExitConfig         = 1
	ExitAuthentication = 2
	ExitSymbol         = 3
	ExitRun            = 4
)

// ExitError carries an explicit exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// ConfigError marks err as a configuration failure.
func ConfigError(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: ExitConfig, Err: err}
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	switch {
	case errors.As(err, &ee):
		return ee.Code
	case errors.Is(err, auth.ErrMissingCredential), errors.Is(err, model.ErrStartAfterToday):
		return ExitConfig
	case errors.Is(err, session.ErrLoginFailed), errors.Is(err, feed.ErrAuthentication):
		return ExitAuthentication
	case errors.Is(err, market.ErrSymbolNotFound):
		return ExitSymbol
	default:
		return ExitRun
	}
}

