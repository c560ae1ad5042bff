package generators

import (
	"fmt"
	"math/rand"

	"github.com/mmrzaf/jsonlgen/internal/domain"
)

type TimestampGenerator struct{}

func (g *TimestampGenerator) Generate(rng *rand.Rand, rule domain.Rule, ctx GeneratorContext) (interface{}, error) {
	return ctx.now().Unix(), nil
}

func (g *TimestampGenerator) Validate(rule domain.Rule) error {
	if rule.Kind != domain.RuleCurrentTimestamp {
		return fmt.Errorf("timestamp generator cannot evaluate %s", rule.Kind)
	}
	return nil
}
