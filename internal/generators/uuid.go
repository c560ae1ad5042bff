package generators

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/mmrzaf/jsonlgen/internal/domain"
)

// UUID4Generator draws the identifier bytes from the caller's rng so that every
// worker mints identifiers from its own stream.
type UUID4Generator struct{}

func (g *UUID4Generator) Generate(rng *rand.Rand, rule domain.Rule, ctx GeneratorContext) (interface{}, error) {
	u, err := NewUUID(rng)
	if err != nil {
		return nil, err
	}
	return u.String(), nil
}

func (g *UUID4Generator) Validate(rule domain.Rule) error {
	if rule.Kind != domain.RuleRandomUUID {
		return fmt.Errorf("uuid4 generator cannot evaluate %s", rule.Kind)
	}
	return nil
}

func NewUUID(rng *rand.Rand) (uuid.UUID, error) {
	uuidBytes := make([]byte, 16)
	rng.Read(uuidBytes)
	uuidBytes[6] = (uuidBytes[6] & 0x0f) | 0x40
	uuidBytes[8] = (uuidBytes[8] & 0x3f) | 0x80
	return uuid.FromBytes(uuidBytes)
}
