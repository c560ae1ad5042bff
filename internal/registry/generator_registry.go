package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mmrzaf/jsonlgen/internal/domain"
	"github.com/mmrzaf/jsonlgen/internal/generators"
)

type GeneratorRegistry struct {
	mu         sync.RWMutex
	generators map[domain.RuleKind]generators.Generator
}

func NewGeneratorRegistry() *GeneratorRegistry {
	return &GeneratorRegistry{
		generators: make(map[domain.RuleKind]generators.Generator),
	}
}

func (r *GeneratorRegistry) Register(kind domain.RuleKind, gen generators.Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[kind] = gen
}

func (r *GeneratorRegistry) Get(kind domain.RuleKind) (generators.Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gen, ok := r.generators[kind]
	if !ok {
		return nil, fmt.Errorf("generator not found: %s", kind)
	}
	return gen, nil
}

func (r *GeneratorRegistry) List() []domain.RuleKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]domain.RuleKind, 0, len(r.generators))
	for kind := range r.generators {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Validate checks a compiled rule against the generator that will evaluate it.
func (r *GeneratorRegistry) Validate(rule domain.Rule) error {
	gen, err := r.Get(rule.Kind)
	if err != nil {
		return err
	}
	return gen.Validate(rule)
}

func DefaultGeneratorRegistry() *GeneratorRegistry {
	r := NewGeneratorRegistry()
	constGen := &generators.ConstGenerator{}
	choiceGen := &generators.ChoiceGenerator{}
	r.Register(domain.RuleCurrentTimestamp, &generators.TimestampGenerator{})
	r.Register(domain.RuleRandomInt, &generators.UniformIntGenerator{})
	r.Register(domain.RuleStaticInt, constGen)
	r.Register(domain.RuleStaticStr, constGen)
	r.Register(domain.RuleNullValue, constGen)
	r.Register(domain.RuleEmptyString, constGen)
	r.Register(domain.RuleChoiceInt, choiceGen)
	r.Register(domain.RuleChoiceStr, choiceGen)
	r.Register(domain.RuleRandomUUID, &generators.UUID4Generator{})
	return r
}
