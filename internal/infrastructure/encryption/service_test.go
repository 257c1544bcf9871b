package encryption

import (
	"encoding/base64"
	"strings"
	"testing"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc, err := NewService(testKey())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	for _, plain := range []string{"", "shared-secret", "ümläut schlüssel"} {
		enc, err := svc.Encrypt(plain)
		if err != nil {
			t.Fatalf("Encrypt(%q) error = %v", plain, err)
		}
		if plain != "" && strings.Contains(enc, plain) {
			t.Fatalf("ciphertext leaks plaintext")
		}
		got, err := svc.Decrypt(enc)
		if err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		if got != plain {
			t.Fatalf("Decrypt() = %q, want %q", got, plain)
		}
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	svc, _ := NewService(testKey())
	a, _ := svc.Encrypt("same")
	b, _ := svc.Encrypt("same")
	if a == b {
		t.Fatal("two encryptions of the same plaintext must differ")
	}
}

func TestDecryptRejectsTampering(t *testing.T) {
	svc, _ := NewService(testKey())
	enc, _ := svc.Encrypt("secret")
	raw, _ := base64.StdEncoding.DecodeString(enc)
	raw[len(raw)-1] ^= 0xff
	if _, err := svc.Decrypt(base64.StdEncoding.EncodeToString(raw)); err == nil {
		t.Fatal("expected authentication failure for tampered ciphertext")
	}
	if _, err := svc.Decrypt(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Fatal("expected error for short ciphertext")
	}
	if _, err := svc.Decrypt("%%%"); err == nil {
		t.Fatal("expected error for non-base64 input")
	}
}

func TestNewServiceRejectsBadKeys(t *testing.T) {
	if _, err := NewService("not base64!"); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := NewService(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Fatal("expected key length error")
	}
}
