package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// Hashing at cost 12 is slow on purpose; tests drop to the library minimum.
func testHasher() Hasher {
	return Hasher{cost: bcrypt.MinCost}
}

func TestHasher_HashAndVerify(t *testing.T) {
	h := testHasher()

	digest, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}

	if !strings.HasPrefix(digest, "$2a$") {
		t.Errorf("expected bcrypt digest, got %q", digest)
	}
	if digest == "correct horse battery staple" {
		t.Error("digest must not equal the plaintext")
	}
	if !h.Verify("correct horse battery staple", digest) {
		t.Error("Verify() rejected the original plaintext")
	}
}

func TestHasher_VerifyRejectsWrongPassword(t *testing.T) {
	h := testHasher()

	digest, err := h.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}

	if h.Verify("password124", digest) {
		t.Error("Verify() accepted a wrong password")
	}
	if h.Verify("", digest) {
		t.Error("Verify() accepted an empty password")
	}
}

func TestHasher_DistinctDigestsPerCall(t *testing.T) {
	h := testHasher()

	first, err := h.Hash("same input")
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}
	second, err := h.Hash("same input")
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}

	if first == second {
		t.Error("two digests of the same input should differ (fresh salt per call)")
	}
	if !h.Verify("same input", first) || !h.Verify("same input", second) {
		t.Error("both digests should verify against the original input")
	}
}

func TestHasher_VerifyRejectsMalformedDigest(t *testing.T) {
	h := testHasher()

	if h.Verify("anything", "not-a-bcrypt-digest") {
		t.Error("Verify() accepted a malformed digest")
	}
}

func TestNewHasher_UsesConfiguredCost(t *testing.T) {
	h := NewHasher()
	if h.cost != BcryptCost {
		t.Errorf("expected cost %d, got %d", BcryptCost, h.cost)
	}
}
