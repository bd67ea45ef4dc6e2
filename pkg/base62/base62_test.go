package base62

import (
	"errors"
	"math"
	"testing"
)

func TestEncode(t *testing.T) {
	cases := []struct {
		num  uint64
		want string
	}{
		{0, "0"},
		{1, "1"},
		{61, "z"},
		{62, "10"},
		{63, "11"},
		{3843, "zz"},
		{3844, "100"},
		{123456789, "8M0kX"},
		{math.MaxUint64, "LygHa16AHYF"},
	}

	for _, tc := range cases {
		if got := Encode(tc.num); got != tc.want {
			t.Errorf("Encode(%d) = %q, want %q", tc.num, got, tc.want)
		}
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	nums := []uint64{0, 1, 61, 62, 12345, 123456789, math.MaxUint64}
	for _, n := range nums {
		got, err := Decode(Encode(n))
		if err != nil {
			t.Fatalf("Decode(Encode(%d)) error: %v", n, err)
		}
		if got != n {
			t.Errorf("Decode(Encode(%d)) = %d", n, got)
		}
	}
}

func TestDecodeShorterIsSmaller(t *testing.T) {
	// A one-symbol gain in length always means a larger integer.
	long, _ := Decode("100")
	short, _ := Decode("zz")
	if long <= short {
		t.Errorf("expected Decode(\"100\") > Decode(\"zz\"), got %d <= %d", long, short)
	}
}

func TestDecodeRejectsLeadingZero(t *testing.T) {
	for _, s := range []string{"01", "00", "0z"} {
		if _, err := Decode(s); !errors.Is(err, ErrNotCanonical) {
			t.Errorf("Decode(%q) = %v, want ErrNotCanonical", s, err)
		}
	}

	// "0" alone is the canonical encoding of zero.
	if v, err := Decode("0"); err != nil || v != 0 {
		t.Errorf("Decode(\"0\") = %d, %v", v, err)
	}
}

func TestDecodeRejectsInvalidInput(t *testing.T) {
	for _, s := range []string{"", "ab!", "短碼", "a b"} {
		if _, err := Decode(s); !errors.Is(err, ErrInvalidCharacter) {
			t.Errorf("Decode(%q) = %v, want ErrInvalidCharacter", s, err)
		}
	}
}

func TestDecodeOverflow(t *testing.T) {
	// One past Encode(MaxUint64).
	if _, err := Decode("LygHa16AHYG"); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
	if _, err := Decode("zzzzzzzzzzzz"); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestIsValid(t *testing.T) {
	if !IsValid("8M0kX") {
		t.Error("expected 8M0kX to be valid")
	}
	if IsValid("") || IsValid("with space") || IsValid("no-dash") {
		t.Error("expected invalid inputs to be rejected")
	}
}

func TestRandom(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		code, err := Random(7)
		if err != nil {
			t.Fatalf("Random error: %v", err)
		}
		if len(code) != 7 {
			t.Fatalf("expected length 7, got %q", code)
		}
		if !IsValid(code) {
			t.Fatalf("Random produced invalid code %q", code)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("expected distinct random codes")
	}

	if _, err := Random(0); err == nil {
		t.Error("expected error for non-positive length")
	}
}
