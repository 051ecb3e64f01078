package slug

import (
	"context"
	"errors"
	"fmt"
)

// DefaultMaxAttempts is the number of candidates tried before giving up.
const DefaultMaxAttempts = 10000

// ErrAllocationExhausted is returned when every candidate up to the attempt
// ceiling was taken or lost to a concurrent writer.
var ErrAllocationExhausted = errors.New("unable to generate unique slug")

// Prober reports whether a slug is already stored.
type Prober interface {
	SlugExists(ctx context.Context, candidate string) (bool, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, candidate string) (bool, error)

func (f ProberFunc) SlugExists(ctx context.Context, candidate string) (bool, error) {
	return f(ctx, candidate)
}

// InsertFunc stores the record under candidate.
type InsertFunc func(ctx context.Context, candidate string) error

// Allocator hands out unique slugs. The probe and the insert are separate
// statements, so the insert may still lose a race; a conflict on insert moves
// on to the next candidate instead of failing.
type Allocator struct {
	prober      Prober
	isConflict  func(error) bool
	maxAttempts int

	// OnConflict, when set, is called for every candidate lost to a concurrent insert.
	OnConflict func(candidate string)
}

// NewAllocator builds an allocator. isConflict must recognise the unique
// violation raised by the slug column and nothing else.
func NewAllocator(prober Prober, isConflict func(error) bool, maxAttempts int) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Allocator{
		prober:      prober,
		isConflict:  isConflict,
		maxAttempts: maxAttempts,
	}
}

// Candidate returns the n-th candidate for base: base, base-1, base-2, ...
func Candidate(base string, n int) string {
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}

// Allocate slugifies name and calls insert with the first free candidate.
// It returns the slug the record was stored under.
func (a *Allocator) Allocate(ctx context.Context, name string, insert InsertFunc) (string, error) {
	base := Slugify(name)

	for n := 0; n < a.maxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		candidate := Candidate(base, n)
		taken, err := a.prober.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("probe slug %q: %w", candidate, err)
		}
		if taken {
			continue
		}

		err = insert(ctx, candidate)
		if err == nil {
			return candidate, nil
		}
		if a.isConflict == nil || !a.isConflict(err) {
			return "", err
		}
		if a.OnConflict != nil {
			a.OnConflict(candidate)
		}
	}

	return "", fmt.Errorf("%w for %q after %d attempts", ErrAllocationExhausted, base, a.maxAttempts)
}
