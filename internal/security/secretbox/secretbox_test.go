package secretbox

import (
	"encoding/base64"
	"strings"
	"testing"
)

func testKey() string {
	raw := make([]byte, 32)
	for i := 0; i < 32; i++ {
		raw[i] = byte(i + 1)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	t.Parallel()

	key := testKey()
	msg := "hola mundo ✓ — secreto smtp"

	ct, err := EncryptWithKey(key, msg)
	if err != nil {
		t.Fatalf("Encrypt err: %v", err)
	}
	pt, err := DecryptWithKey(key, ct)
	if err != nil {
		t.Fatalf("Decrypt err: %v", err)
	}
	if pt != msg {
		t.Fatalf("plaintext mismatch: got %q want %q", pt, msg)
	}
}

func TestDecrypt_DetectsTamper(t *testing.T) {
	t.Parallel()

	key := testKey()
	ct, err := EncryptWithKey(key, "top secret")
	if err != nil {
		t.Fatalf("Encrypt err: %v", err)
	}
	parts := strings.Split(ct, "|")
	if len(parts) != 2 {
		t.Fatalf("unexpected ct format")
	}
	// corromper un byte del ciphertext (base64 -> bytes -> flip -> base64)
	bs, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatal(err)
	}
	bs[0] ^= 0x01
	corrupted := parts[0] + "|" + base64.StdEncoding.EncodeToString(bs)

	if _, err := DecryptWithKey(key, corrupted); err == nil {
		t.Fatalf("expected auth error, got nil")
	}
}

func TestParseKey_Formats(t *testing.T) {
	t.Parallel()

	raw := strings.Repeat("k", 32)
	for _, k := range []string{
		base64.StdEncoding.EncodeToString([]byte(raw)),
		"6b6b6b6b6b6b6b6b6b6b6b6b6b6b6b6b6b6b6b6b6b6b6b6b6b6b6b6b6b6b6b6b",
		raw,
	} {
		if _, err := ParseKey(k); err != nil {
			t.Fatalf("ParseKey(%q) err: %v", k, err)
		}
	}
	if _, err := ParseKey("short"); err == nil {
		t.Fatalf("expected error for short key")
	}
}
