// Package credential hashes and verifies account passwords.
package credential

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// Verifier checks presented passwords against stored credentials.
//
// AllowLegacyPlaintext keeps compatibility with rows that predate hashing:
// when the stored value is not a recognized bcrypt hash, the presented
// password is compared directly against it. This is security debt, not a
// feature; it exists so legacy accounts can still log in until their
// credentials are migrated, and callers are told via the legacy return so
// the fallback's use can be audited. New deployments should construct the
// verifier with the fallback disabled.
type Verifier struct {
	cost                 int
	allowLegacyPlaintext bool
}

type Option func(*Verifier)

// WithCost overrides the bcrypt cost parameter.
func WithCost(cost int) Option {
	return func(v *Verifier) { v.cost = cost }
}

// WithLegacyPlaintextFallback enables direct comparison against unhashed
// stored credentials.
func WithLegacyPlaintextFallback() Option {
	return func(v *Verifier) { v.allowLegacyPlaintext = true }
}

func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Hash produces a salted bcrypt hash. Used whenever a credential is created
// or changed; the legacy fallback never goes through here.
func (v *Verifier) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), v.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether presented matches the stored credential. The
// second return is true when the match came through the plaintext fallback,
// so callers can emit the audit signal operators use to track migration.
func (v *Verifier) Verify(presented, stored string) (ok bool, legacy bool) {
	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented))
	if err == nil {
		return true, false
	}
	if !v.allowLegacyPlaintext {
		return false, false
	}
	// The stored value may not be a bcrypt hash at all; fall back to a
	// constant-time direct comparison.
	if subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1 {
		return true, true
	}
	return false, false
}
