package auth

import (
	"strings"
	"testing"
)

func TestHashAndVerifyToken(t *testing.T) {
	t.Parallel()

	token := "lb_live_7a9x3k_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b"

	hash, err := HashToken(token)
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("expected PHC format hash, got %s", hash)
	}

	ok, err := VerifyToken(token, hash)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if !ok {
		t.Error("expected token to verify against its own hash")
	}

	ok, err = VerifyToken("wrong-token", hash)
	if err != nil {
		t.Fatalf("verify wrong token: %v", err)
	}
	if ok {
		t.Error("expected wrong token to fail verification")
	}
}

func TestHashToken_UniqueSalts(t *testing.T) {
	t.Parallel()

	a, err := HashToken("same-token")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := HashToken("same-token")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == b {
		t.Error("expected different hashes for the same token (random salt)")
	}
}

func TestVerifyToken_InvalidHashFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"not phc", "plainhash"},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA"},
		{"bad salt encoding", "$argon2id$v=19$m=65536,t=3,p=4$!!!$aGFzaA"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := VerifyToken("token", tt.hash); err == nil {
				t.Error("expected error for malformed hash")
			}
		})
	}
}

func TestQuickHash(t *testing.T) {
	t.Parallel()

	a := QuickHash("token-a")
	b := QuickHash("token-a")
	c := QuickHash("token-b")

	if a != b {
		t.Error("expected deterministic quick hash")
	}
	if a == c {
		t.Error("expected different hashes for different tokens")
	}
	if len(a) != 32 {
		t.Errorf("expected 32-char hash, got %d", len(a))
	}
}
