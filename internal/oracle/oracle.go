package oracle

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrMalformedScore is returned when an oracle produces a value outside [0,1].
var ErrMalformedScore = errors.New("similarity score is not a probability")

// Oracle estimates the probability that two texts describe a matching
// candidate and posting.
type Oracle interface {
	Similarity(ctx context.Context, a, b string) (float32, error)
}

// Func adapts a plain function to the Oracle interface.
type Func func(ctx context.Context, a, b string) (float32, error)

func (f Func) Similarity(ctx context.Context, a, b string) (float32, error) {
	return f(ctx, a, b)
}

// Check validates a score returned by an oracle.
func Check(score float32) error {
	v := float64(score)
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: %v", ErrMalformedScore, score)
	}
	return nil
}

// Normalize collapses whitespace so that formatting differences do not
// produce distinct cache entries.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Key returns a stable identity for an ordered text pair.
func Key(a, b string) string {
	h := sha256.New()
	h.Write([]byte(Normalize(a)))
	h.Write([]byte{0})
	h.Write([]byte(Normalize(b)))
	return fmt.Sprintf("%x", h.Sum(nil))
}
