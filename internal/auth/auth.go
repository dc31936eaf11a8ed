// Package auth builds Noren login material: hashed password, app key and the
// TOTP second factor.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pquerna/otp/totp"
)

// DefaultIMEI is sent when no device identifier is configured.
const DefaultIMEI = "default-imei"

// ErrMissingCredential is returned when a required credential is empty.
var ErrMissingCredential = errors.New("missing credential")

// Credentials holds the broker login secrets. Fields are populated from the
// environment (see config.LoadCredentials).
type Credentials struct {
	UserID     string `env:"SHOONYA_USER_ID,required"`
	Password   string `env:"SHOONYA_PASSWORD,required"`
	TOTPKey    string `env:"SHOONYA_TOTP_KEY,required"` // base32 TOTP secret
	VendorCode string `env:"SHOONYA_VENDOR_CODE,required"`
	APISecret  string `env:"SHOONYA_API_KEY,required"`
	IMEI       string `env:"SHOONYA_IMEI" envDefault:"default-imei"`
}

// Validate checks that every field needed to log in is present.
func (c *Credentials) Validate() error {
	for _, f := range []struct{ name, val string }{
		{"SHOONYA_USER_ID", c.UserID},
		{"SHOONYA_PASSWORD", c.Password},
		{"SHOONYA_TOTP_KEY", c.TOTPKey},
		{"SHOONYA_VENDOR_CODE", c.VendorCode},
		{"SHOONYA_API_KEY", c.APISecret},
	} {
		if f.val == "" {
			return fmt.Errorf("%w: %s", ErrMissingCredential, f.name)
		}
	}
	return nil
}

// LogValue keeps secrets out of log lines.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user_id", c.UserID),
		slog.String("vendor_code", c.VendorCode),
		slog.String("imei", c.IMEI),
	)
}

// SecondFactor returns the TOTP code for the given instant.
func (c *Credentials) SecondFactor(at time.Time) (string, error) {
	return TOTP(c.TOTPKey, at)
}

// SHA256Hex returns the lowercase hex SHA-256 digest of s.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// PasswordHash is the value sent as "pwd" at login.
func PasswordHash(password string) string {
	return SHA256Hex(password)
}

// AppKey is the value sent as "appkey" at login: sha256("uid|api_secret").
func AppKey(uid, apiSecret string) string {
	return SHA256Hex(uid + "|" + apiSecret)
}

// TOTP generates a 6-digit, 30-second RFC 6238 code from a base32 secret.
func TOTP(secret string, at time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: totp secret", ErrMissingCredential)
	}
	code, err := totp.GenerateCode(secret, at)
	if err != nil {
		return "", fmt.Errorf("generate totp: %w", err)
	}
	return code, nil
}
