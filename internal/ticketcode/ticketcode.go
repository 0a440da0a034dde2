package ticketcode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
)

// Alphabet excludes 0/O, 1/I/L and lowercase so codes survive manual entry
// and low-quality QR scans.
const Alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	DefaultLength      = 12
	DefaultMaxAttempts = 5
)

// ErrExhausted is returned when every generation attempt collided with an
// existing code. With a 31-character alphabet and 12-character codes this
// means the store-side check is broken, not that the space ran out.
var ErrExhausted = errors.New("ticket code generation exhausted")

// ExistsFunc reports whether a code is already present in the store.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generator mints unguessable ticket codes from crypto/rand and verifies
// uniqueness against the store before accepting one.
type Generator struct {
	length      int
	maxAttempts int
	exists      ExistsFunc
}

func NewGenerator(exists ExistsFunc, length, maxAttempts int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}

	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Generator{
		length:      length,
		maxAttempts: maxAttempts,
		exists:      exists,
	}
}

// Generate returns a fresh unique code.
//
// Returns:
//   - string: the code when successful.
//   - error: ErrExhausted after maxAttempts collisions, or the store error
//     from the uniqueness check.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	const op = "ticketcode.Generator.Generate"

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := random(g.length)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		if g.exists == nil {
			return code, nil
		}

		taken, err := g.exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		if !taken {
			return code, nil
		}
	}

	return "", fmt.Errorf("%s: %w", op, ErrExhausted)
}

func random(n int) (string, error) {
	// Bytes at or above the largest multiple of len(Alphabet) are rejected
	// so every character stays equally likely.
	const limit = 256 - 256%len(Alphabet)

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}

		for _, b := range buf {
			if int(b) >= limit {
				continue
			}

			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == n {
				return string(out), nil
			}
		}
	}
}
