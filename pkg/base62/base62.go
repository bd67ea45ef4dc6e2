// Package base62 implements the short-code alphabet: digits, uppercase
// and lowercase letters, 62 symbols total. Encode and Decode form a
// bijection between non-negative integers and canonical strings, so a
// unique identifier can never collide after encoding.
package base62

import (
	"crypto/rand"
	"errors"
	"math"
)

const (
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	base     = 62
)

var (
	// ErrInvalidCharacter is returned when the input contains a symbol
	// outside the base62 alphabet.
	ErrInvalidCharacter = errors.New("base62: invalid character")

	// ErrNotCanonical is returned for strings with leading zeros. Only
	// canonical forms decode, which keeps Decode the exact inverse of
	// Encode.
	ErrNotCanonical = errors.New("base62: non-canonical encoding")

	// ErrOverflow is returned when the decoded value does not fit in a
	// uint64.
	ErrOverflow = errors.New("base62: decoded value exceeds uint64 range")
)

var charValue [256]int16

func init() {
	for i := range charValue {
		charValue[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		charValue[alphabet[i]] = int16(i)
	}
}

// Encode converts a non-negative integer to its canonical base62 form.
// Smaller integers produce shorter strings; zero encodes as "0".
func Encode(num uint64) string {
	if num == 0 {
		return "0"
	}

	buf := make([]byte, 0, 11) // 62^11 > MaxUint64
	for num > 0 {
		buf = append(buf, alphabet[num%base])
		num /= base
	}

	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// Decode converts a canonical base62 string back to the integer it
// encodes. It rejects empty input, unknown symbols, leading zeros and
// values past the uint64 range.
func Decode(s string) (uint64, error) {
	if s == "" {
		return 0, ErrInvalidCharacter
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, ErrNotCanonical
	}

	var result uint64
	for i := 0; i < len(s); i++ {
		v := charValue[s[i]]
		if v < 0 {
			return 0, ErrInvalidCharacter
		}
		if result > (math.MaxUint64-uint64(v))/base {
			return 0, ErrOverflow
		}
		result = result*base + uint64(v)
	}
	return result, nil
}

// IsValid reports whether every symbol of s belongs to the alphabet.
// It does not require canonical form; use Decode for that.
func IsValid(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if charValue[s[i]] < 0 {
			return false
		}
	}
	return true
}

// Random returns a uniformly distributed code of the given length.
// Candidates from this mode are not derived from an identifier, so the
// caller must handle store conflicts by regenerating.
func Random(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("base62: length must be positive")
	}

	buf := make([]byte, length)
	raw := make([]byte, length)
	filled := 0
	for filled < length {
		if _, err := rand.Read(raw); err != nil {
			return "", err
		}
		for _, b := range raw {
			// Rejection sampling: 248 is the largest multiple of 62
			// below 256, anything above it would bias the low symbols.
			if b >= 248 {
				continue
			}
			buf[filled] = alphabet[int(b)%base]
			filled++
			if filled == length {
				break
			}
		}
	}
	return string(buf), nil
}
