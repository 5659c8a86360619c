package config

import (
	"strings"
	"testing"
)

func TestGeneratePrivateKey_clamping(t *testing.T) {
	t.Parallel()

	for i := 0; i < 16; i++ {
		k, err := GeneratePrivateKey()
		if err != nil {
			t.Fatalf("GeneratePrivateKey() error: %v", err)
		}
		if k[0]&7 != 0 {
			t.Errorf("low bits not cleared: %08b", k[0])
		}
		if k[31]&128 != 0 {
			t.Errorf("high bit not cleared: %08b", k[31])
		}
		if k[31]&64 == 0 {
			t.Errorf("bit 6 not set: %08b", k[31])
		}
	}
}

func TestKey_roundTrip(t *testing.T) {
	t.Parallel()

	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey() error: %v", err)
	}

	parsed, err := ParseKey(priv.String())
	if err != nil {
		t.Fatalf("ParseKey() error: %v", err)
	}
	if parsed != priv {
		t.Error("round-tripped key differs from original")
	}
}

func TestParseKey_rejectsBadInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"too short", "YWJj"},
		{"empty", ""},
		{"too long", strings.Repeat("A", 64) + "=="},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseKey(tc.in); err == nil {
				t.Errorf("ParseKey(%q) succeeded, want error", tc.in)
			}
		})
	}
}

func TestGenerateKeypair_publicMatchesDerivation(t *testing.T) {
	t.Parallel()

	priv, pub, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	if pub != PublicKey(priv) {
		t.Error("keypair public key does not match PublicKey(priv)")
	}
	if pub.IsZero() || priv.IsZero() {
		t.Error("generated key is zero")
	}
}
