package security_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/angelmondragon/sealcard-backend/pkg/config"
	"github.com/angelmondragon/sealcard-backend/pkg/security"
)

var cheapArgon = config.PasswordConfig{
	ArgonMemoryKB:    64,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("correct horse battery", cheapArgon)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	cases := []struct {
		name     string
		password string
		encoded  string
		want     bool
		wantErr  bool
	}{
		{name: "match", password: "correct horse battery", encoded: hash, want: true},
		{name: "mismatch", password: "correct horse", encoded: hash},
		{name: "empty candidate", password: "", encoded: hash},
		{name: "garbage hash", password: "x", encoded: "not-a-hash", wantErr: true},
		{name: "bad salt encoding", password: "x", encoded: "$argon2id$v=19$m=64,t=1,p=1$!!$AAAA", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := security.VerifyPassword(tc.password, tc.encoded)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if ok != tc.want {
				t.Fatalf("ok = %v, want %v", ok, tc.want)
			}
		})
	}
}

func TestHashPasswordSaltsEachCall(t *testing.T) {
	first, err := security.HashPassword("same", cheapArgon)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := security.HashPassword("same", cheapArgon)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of one password must differ")
	}
	if !strings.HasPrefix(first, "$argon2id$v=19$m=64,t=1,p=1$") {
		t.Fatalf("unexpected encoding %s", first)
	}
	if _, err := security.HashPassword("", cheapArgon); err == nil {
		t.Fatal("empty password must be rejected")
	}
}

func TestGenerateCodeUsesUnambiguousAlphabet(t *testing.T) {
	code, err := security.GenerateCode(64)
	if err != nil {
		t.Fatalf("GenerateCode returned error: %v", err)
	}
	if len(code) != 64 {
		t.Fatalf("expected 64 characters, got %d", len(code))
	}
	for _, r := range code {
		switch r {
		case '0', 'O', '1', 'I':
			t.Fatalf("code %q contains ambiguous rune %q", code, r)
		}
	}
	if _, err := security.GenerateCode(0); err == nil {
		t.Fatal("expected error for non-positive length")
	}
}

func TestVerifyPasswordRejectsTamperedParams(t *testing.T) {
	hash, err := security.HashPassword("pw", cheapArgon)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cases := map[string]string{
		"wrong algo":    strings.Replace(hash, "argon2id", "argon2i", 1),
		"wrong version": strings.Replace(hash, "v=19", "v=16", 1),
		"zero memory":   strings.Replace(hash, "m=64", "m=0", 1),
	}
	for name, encoded := range cases {
		if _, err := security.VerifyPassword("pw", encoded); !errors.Is(err, security.ErrInvalidHash) {
			t.Errorf("%s: expected ErrInvalidHash, got %v", name, err)
		}
	}
}

func TestHashPasswordClampsWeakConfig(t *testing.T) {
	hash, err := security.HashPassword("pw", config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.Contains(hash, "m=8,t=1,p=1") {
		t.Fatalf("expected clamped params in %s", hash)
	}
}
