package weather

import (
	"errors"
	"testing"
)

func TestResolveCountry(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"IT", "Italy"},
		{"it", "Italy"},
		{" de ", "Germany"},
		{"FR", "France"},
	}

	for _, tt := range tests {
		got, err := ResolveCountry(tt.code)
		if err != nil {
			t.Errorf("ResolveCountry(%q): %v", tt.code, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveCountry(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestResolveCountryInvalid(t *testing.T) {
	for _, code := range []string{"Nope", "", "X", "ZZ", "Italy"} {
		_, err := ResolveCountry(code)
		if !errors.Is(err, ErrInvalidCountry) {
			t.Errorf("ResolveCountry(%q) = %v, want ErrInvalidCountry", code, err)
		}
	}
}
