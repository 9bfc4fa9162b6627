// Package twofa implements the two-factor engine: TOTP secrets with
// provisioning QR codes, code verification with clock-drift tolerance,
// and single-use backup codes.
package twofa

import (
	"bytes"
	"fmt"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// secretSize is the raw secret length in bytes (160 bits base32).
	secretSize = 20

	// period and skew define the acceptance window: the previous, current
	// and next 30-second step.
	period = 30
	skew   = 1
)

// GenerateKey creates a fresh TOTP secret and its otpauth provisioning
// URI. Nothing is persisted here; the caller stores the secret only
// after the initial code is confirmed.
func GenerateKey(issuer, account string) (*otp.Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		SecretSize:  secretSize,
	})
	if err != nil {
		return nil, fmt.Errorf("error generating totp secret: %w", err)
	}
	return key, nil
}

// QRImage renders the provisioning URI as a PNG for display in the
// enrollment message.
func QRImage(key *otp.Key) ([]byte, error) {
	img, err := key.Image(256, 256)
	if err != nil {
		return nil, fmt.Errorf("error rendering qr code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("error encoding qr png: %w", err)
	}
	return buf.Bytes(), nil
}

// VerifyCode checks a 6-digit authenticator code against the secret at
// the current time.
func VerifyCode(secret, code string) bool {
	return VerifyCodeAt(secret, code, time.Now())
}

// VerifyCodeAt is VerifyCode with an explicit reference time, so tests
// can exercise the drift window without waiting. Anything that is not
// exactly six digits is rejected before the time-window algorithm runs.
func VerifyCodeAt(secret, code string, t time.Time) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}

	ok, err := totp.ValidateCustom(code, secret, t, totp.ValidateOpts{
		Period:    period,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// CodeAt computes the expected code for a given time. Test helper.
func CodeAt(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t, totp.ValidateOpts{
		Period:    period,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}
