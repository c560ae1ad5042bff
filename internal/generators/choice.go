package generators

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/mmrzaf/jsonlgen/internal/domain"
)

type ChoiceGenerator struct{}

func (g *ChoiceGenerator) Generate(rng *rand.Rand, rule domain.Rule, ctx GeneratorContext) (interface{}, error) {
	if err := g.Validate(rule); err != nil {
		return nil, err
	}
	if rule.Kind == domain.RuleChoiceInt {
		return rule.IntOptions[rng.Intn(len(rule.IntOptions))], nil
	}
	return rule.StrOptions[rng.Intn(len(rule.StrOptions))], nil
}

func (g *ChoiceGenerator) Validate(rule domain.Rule) error {
	switch rule.Kind {
	case domain.RuleChoiceInt:
		if len(rule.IntOptions) == 0 {
			return errors.New("'options' cannot be empty")
		}
	case domain.RuleChoiceStr:
		if len(rule.StrOptions) == 0 {
			return errors.New("'options' cannot be empty")
		}
	default:
		return fmt.Errorf("choice generator cannot evaluate %s", rule.Kind)
	}
	return nil
}
