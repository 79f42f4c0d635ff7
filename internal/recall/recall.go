// Package recall generates the human-facing recall numbers printed on calibration tags.
package recall

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

const (
	alphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	minLength = 7
	maxLength = 10

	// DefaultMaxAttempts bounds the collision retry loop.
	DefaultMaxAttempts = 50
)

// ErrExhausted is returned when every attempt collided with an existing number.
var ErrExhausted = errors.New("recall number attempts exhausted")

// ExistsFunc reports whether a candidate is already taken.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Generator draws candidates until one is not taken.
type Generator struct {
	exists      ExistsFunc
	maxAttempts int
	candidate   func() (string, error)
}

// New returns a generator of 7-10 character [A-Z0-9] recall numbers.
func New(exists ExistsFunc, maxAttempts int) *Generator {
	return newGenerator(exists, maxAttempts, RandomCode)
}

// NewLegacy returns a generator of RCL-{yymmddHHMMSS}-{5 digits} numbers used by tracking records.
func NewLegacy(exists ExistsFunc, maxAttempts int, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return newGenerator(exists, maxAttempts, func() (string, error) {
		return LegacyCode(now())
	})
}

func newGenerator(exists ExistsFunc, maxAttempts int, candidate func() (string, error)) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{exists: exists, maxAttempts: maxAttempts, candidate: candidate}
}

// Generate returns a number that the exists check did not report as taken.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := g.candidate()
		if err != nil {
			return "", err
		}
		taken, err := g.exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check recall number %q: %w", code, err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrExhausted, g.maxAttempts)
}

// RandomCode returns one random candidate of 7 to 10 characters.
func RandomCode() (string, error) {
	n, err := randInt(maxLength - minLength + 1)
	if err != nil {
		return "", err
	}
	buf := make([]byte, minLength+n)
	for i := range buf {
		idx, err := randInt(len(alphabet))
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[idx]
	}
	return string(buf), nil
}

// LegacyCode formats a tracking record recall number for t.
func LegacyCode(t time.Time) (string, error) {
	n, err := randInt(100000)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("RCL-%s-%05d", t.Format("060102150405"), n), nil
}

func randInt(max int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return int(v.Int64()), nil
}
