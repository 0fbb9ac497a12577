package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"
)

// AccountNumberDigits is the default length of an account number.
const AccountNumberDigits = 10

// Generator produces candidate account numbers. Callers retry on
// collisions, so a Generator does not need to guarantee uniqueness.
type Generator interface {
	Next() (string, error)
}

// FormatAccountNumber zero-pads n to the given number of digits.
// 42, 10 -> "0000000042"
func FormatAccountNumber(n uint64, digits int) string {
	return fmt.Sprintf("%0*d", digits, n)
}

// ValidAccountNumber reports whether s is exactly digits decimal digits.
func ValidAccountNumber(s string, digits int) bool {
	if len(s) != digits {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) < 0
}

// Random draws uniformly distributed account numbers from a
// cryptographic source.
type Random struct {
	digits int
	src    io.Reader
	max    *big.Int
}

// NewRandom returns a Random generator for numbers of the given length
// backed by crypto/rand.
func NewRandom(digits int) *Random {
	return NewRandomFrom(rand.Reader, digits)
}

// NewRandomFrom returns a Random generator reading entropy from src.
func NewRandomFrom(src io.Reader, digits int) *Random {
	if digits <= 0 || digits > 19 {
		digits = AccountNumberDigits
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	return &Random{digits: digits, src: src, max: max}
}

// Next returns a random account number.
func (r *Random) Next() (string, error) {
	n, err := rand.Int(r.src, r.max)
	if err != nil {
		return "", fmt.Errorf("generating account number: %w", err)
	}
	return FormatAccountNumber(n.Uint64(), r.digits), nil
}

// Sequence hands out consecutive account numbers. It is deterministic and
// meant for tests and fixtures.
type Sequence struct {
	mu     sync.Mutex
	digits int
	next   uint64
}

// NewSequence returns a Sequence starting at start.
func NewSequence(start uint64, digits int) *Sequence {
	if digits <= 0 {
		digits = AccountNumberDigits
	}
	return &Sequence{digits: digits, next: start}
}

// Next returns the next number in the sequence.
func (s *Sequence) Next() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.next
	s.next++
	num := FormatAccountNumber(n, s.digits)
	if len(num) > s.digits {
		return "", fmt.Errorf("sequence exhausted at %d", n)
	}
	return num, nil
}
