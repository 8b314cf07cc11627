package auth

import "golang.org/x/crypto/bcrypt"

// BcryptCost balances brute-force resistance against login latency.
const BcryptCost = 12

// Hasher wraps bcrypt behind an injectable value so handlers and tests never
// reach for package-level state.
type Hasher struct {
	cost int
}

func NewHasher() Hasher {
	return Hasher{cost: BcryptCost}
}

// Hash produces a salted digest of plaintext. Each call embeds a fresh salt,
// so two digests of the same input differ.
func (h Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. A mismatch is a false
// return, never an error.
func (h Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
