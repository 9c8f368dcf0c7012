package auth

import (
	"bytes"
	"testing"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestSealerRoundTrip(t *testing.T) {
	sealer, err := NewSealer(testKey())
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}

	sealed, err := sealer.Seal("upstream-token-abc")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if sealed == "upstream-token-abc" {
		t.Fatal("sealed value must not equal plaintext")
	}

	opened, err := sealer.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if opened != "upstream-token-abc" {
		t.Fatalf("round trip: got %q", opened)
	}
}

func TestSealProducesFreshNonces(t *testing.T) {
	sealer, _ := NewSealer(testKey())
	first, _ := sealer.Seal("same")
	second, _ := sealer.Seal("same")
	if first == second {
		t.Fatal("sealing the same plaintext twice must differ")
	}
}

func TestSealerRejectsBadKeyLength(t *testing.T) {
	if _, err := NewSealer([]byte("short")); err == nil {
		t.Fatal("expected an error for a short key")
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	sealer, _ := NewSealer(testKey())
	sealed, _ := sealer.Seal("secret")

	tampered := []byte(sealed)
	tampered[len(tampered)-5] ^= 1
	if _, err := sealer.Open(string(tampered)); err == nil {
		t.Fatal("expected an error for tampered ciphertext")
	}

	if _, err := sealer.Open("dG9vc2hvcnQ="); err == nil {
		t.Fatal("expected an error for truncated ciphertext")
	}
}
