package generators

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/mmrzaf/jsonlgen/internal/domain"
)

type UniformIntGenerator struct{}

func (g *UniformIntGenerator) Generate(rng *rand.Rand, rule domain.Rule, ctx GeneratorContext) (interface{}, error) {
	if err := g.Validate(rule); err != nil {
		return nil, err
	}
	return IntBetween(rng, rule.Low, rule.High), nil
}

func (g *UniformIntGenerator) Validate(rule domain.Rule) error {
	if rule.Kind != domain.RuleRandomInt {
		return fmt.Errorf("uniform_int generator cannot evaluate %s", rule.Kind)
	}
	if rule.High < rule.Low {
		return fmt.Errorf("high (%d) must not be less than low (%d)", rule.High, rule.Low)
	}
	return nil
}

// IntBetween returns a uniform value in [lo, hi]; it requires lo <= hi.
func IntBetween(rng *rand.Rand, lo, hi int64) int64 {
	span := uint64(hi) - uint64(lo)
	if span < math.MaxInt64 {
		return lo + rng.Int63n(int64(span)+1)
	}
	if span == math.MaxUint64 {
		return int64(rng.Uint64())
	}
	// span+1 does not fit an int63; reject samples outside it
	for {
		v := rng.Uint64()
		if v <= span {
			return int64(uint64(lo) + v)
		}
	}
}
