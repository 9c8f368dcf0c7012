package phone

import (
	"errors"
	"testing"
)

func TestNormalizeAcceptedFormats(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0712345678", "254712345678"},
		{"254712345678", "254712345678"},
		{"+254712345678", "254712345678"},
		{"712345678", "254712345678"},
		{" 0712 345 678 ", "254712345678"},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.in)
		if err != nil {
			t.Fatalf("Normalize(%q): unexpected error %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Normalize(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeRejectsInvalidNumbers(t *testing.T) {
	cases := []string{
		"",
		"12345",
		"0812345678",
		"07123456789",
		"071234567",
		"notaphone",
	}
	for _, in := range cases {
		if _, err := Normalize(in); !errors.Is(err, ErrInvalidNumber) {
			t.Fatalf("Normalize(%q): expected ErrInvalidNumber, got %v", in, err)
		}
	}
}

func TestValid(t *testing.T) {
	if !Valid("0712345678") {
		t.Fatal("expected 0712345678 to be valid")
	}
	if Valid("0812345678") {
		t.Fatal("expected 0812345678 to be invalid")
	}
}
