package generators

import (
	"math/rand"
	"time"

	"github.com/mmrzaf/jsonlgen/internal/domain"
)

// Generator evaluates compiled rules of the kinds it is registered for.
// Implementations hold no state; all randomness comes from rng.
type Generator interface {
	Generate(rng *rand.Rand, rule domain.Rule, ctx GeneratorContext) (interface{}, error)
	Validate(rule domain.Rule) error
}

type GeneratorContext struct {
	RowIndex int64
	Now      func() time.Time
}

func (c GeneratorContext) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
