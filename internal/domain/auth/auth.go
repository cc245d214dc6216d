// Package auth implements the shared-PIN admin login.
//
// There is a single admin role and no per-user identity. A successful login
// returns a session token derived with HMAC-SHA256 from the PIN and a server
// pepper, so rotating either one invalidates every issued token.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"unicode/utf8"

	"github.com/xenking/warishayday/internal/domain/apperr"
)

// MinPINLength is the shortest PIN accepted.
const MinPINLength = 4

const tokenContext = "warishayday admin session"

// Verifier checks admin PINs and session tokens.
type Verifier struct {
	pinMAC []byte
	token  []byte
	pepper []byte
}

// NewVerifier creates a Verifier for the configured PIN.
func NewVerifier(pin, pepper string) (*Verifier, error) {
	if err := CheckPIN(pin); err != nil {
		return nil, err
	}
	v := &Verifier{pepper: []byte(pepper)}
	v.pinMAC = v.sum([]byte(pin))

	mac := hmac.New(sha256.New, v.pepper)
	mac.Write([]byte(tokenContext))
	mac.Write(v.pinMAC)
	v.token = mac.Sum(nil)
	return v, nil
}

// CheckPIN rejects PINs shorter than MinPINLength characters.
func CheckPIN(pin string) error {
	if utf8.RuneCountInString(pin) < MinPINLength {
		return apperr.Invalidf("pin", "must be at least %d characters", MinPINLength)
	}
	return nil
}

func (v *Verifier) sum(b []byte) []byte {
	mac := hmac.New(sha256.New, v.pepper)
	mac.Write(b)
	return mac.Sum(nil)
}

// Verify reports whether pin matches the configured PIN. Both sides are
// hashed first so the comparison time does not depend on the PIN length.
func (v *Verifier) Verify(pin string) bool {
	return subtle.ConstantTimeCompare(v.sum([]byte(pin)), v.pinMAC) == 1
}

// Token returns the session token handed out on a successful login.
func (v *Verifier) Token() string {
	return hex.EncodeToString(v.token)
}

// ValidToken reports whether tok was issued by Token.
func (v *Verifier) ValidToken(tok string) bool {
	raw, err := hex.DecodeString(tok)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(raw, v.token) == 1
}
