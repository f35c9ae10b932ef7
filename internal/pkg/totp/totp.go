// Package totp wraps github.com/pquerna/otp with the fixed parameters used by
// ADISA: SHA-1, 6 digits, 30 second period, 20 byte secrets and a tolerance
// of one step on either side of the current one.
package totp

import (
	"bytes"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"image/png"
	"io"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	Period     = 30
	SecretSize = 20
	Skew       = 1
	Digits     = otp.DigitsSix

	qrSize = 200
)

var validateOpts = totp.ValidateOpts{
	Period:    Period,
	Skew:      Skew,
	Digits:    Digits,
	Algorithm: otp.AlgorithmSHA1,
}

// Key is freshly generated provisioning material.
type Key struct {
	// Secret is the base32 secret without padding.
	Secret string
	// URL is the otpauth:// provisioning URI.
	URL string
	key *otp.Key
}

// QRCodeDataURL renders the provisioning URI as a PNG data URL.
func (k *Key) QRCodeDataURL() (string, error) {
	img, err := k.key.Image(qrSize, qrSize)
	if err != nil {
		return "", fmt.Errorf("render qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Engine generates secrets and checks codes.
type Engine struct {
	issuer string
	rand   io.Reader
}

// New returns an Engine issuing keys under issuer.
func New(issuer string) *Engine {
	return &Engine{issuer: issuer, rand: rand.Reader}
}

// NewKey draws a random secret and builds the provisioning URI for accountName.
func (e *Engine) NewKey(accountName string) (*Key, error) {
	secret := make([]byte, SecretSize)
	if _, err := io.ReadFull(e.rand, secret); err != nil {
		return nil, fmt.Errorf("read random secret: %w", err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: accountName,
		Period:      Period,
		Secret:      secret,
		Digits:      Digits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}

	return &Key{Secret: key.Secret(), URL: key.URL(), key: key}, nil
}

// Validate checks code against secret for the step containing at and the
// steps right before and after it. It returns the matched step.
func (e *Engine) Validate(secret, code string, at time.Time) (uint64, bool) {
	if !WellFormed(code) {
		return 0, false
	}

	current := Step(at)
	for _, step := range []uint64{current, current - 1, current + 1} {
		want, err := totp.GenerateCodeCustom(secret, stepTime(step), validateOpts)
		if err != nil {
			return 0, false
		}
		if subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1 {
			return step, true
		}
	}
	return 0, false
}

// GenerateCode returns the code valid for secret at t.
func GenerateCode(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t, validateOpts)
}

// Step returns the index of the period containing t.
func Step(t time.Time) uint64 {
	return uint64(t.Unix()) / Period
}

func stepTime(step uint64) time.Time {
	return time.Unix(int64(step*Period), 0).UTC()
}

// WellFormed reports whether code is exactly six ASCII digits.
func WellFormed(code string) bool {
	if len(code) != Digits.Length() {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
