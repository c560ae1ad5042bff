package generators

import (
	"fmt"
	"math/rand"

	"github.com/mmrzaf/jsonlgen/internal/domain"
)

// ConstGenerator serves every rule whose value is fixed at compile time.
type ConstGenerator struct{}

func (g *ConstGenerator) Generate(rng *rand.Rand, rule domain.Rule, ctx GeneratorContext) (interface{}, error) {
	switch rule.Kind {
	case domain.RuleStaticInt:
		return rule.IntValue, nil
	case domain.RuleStaticStr:
		return rule.StrValue, nil
	case domain.RuleNullValue:
		return nil, nil
	case domain.RuleEmptyString:
		return "", nil
	default:
		return nil, fmt.Errorf("const generator cannot evaluate %s", rule.Kind)
	}
}

func (g *ConstGenerator) Validate(rule domain.Rule) error {
	switch rule.Kind {
	case domain.RuleStaticInt, domain.RuleStaticStr, domain.RuleNullValue, domain.RuleEmptyString:
		return nil
	default:
		return fmt.Errorf("const generator cannot evaluate %s", rule.Kind)
	}
}
