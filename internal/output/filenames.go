package output

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/mmrzaf/jsonlgen/internal/domain"
)

const Extension = ".jsonl"

// FileNames returns count output file names for base. A single file is always
// named <base>.jsonl; otherwise each name gets a suffix chosen by prefix.
// Random and uuid suffixes are re-drawn on collision so no chunk overwrites
// another. A random prefix cannot name more than domain.RandomSuffixSpace files.
func FileNames(base, prefix string, count int, rng *rand.Rand) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	if count == 1 {
		return []string{base + Extension}, nil
	}
	if !domain.IsValidPrefix(prefix) {
		return nil, fmt.Errorf("unknown file name prefix: %s", prefix)
	}
	if prefix == domain.PrefixRandom && count > domain.RandomSuffixSpace {
		return nil, domain.NewError(domain.ErrTooManyFiles,
			"random prefix supports at most %d files, got %d", domain.RandomSuffixSpace, count)
	}

	names := make([]string, 0, count)
	seen := make(map[string]struct{}, count)
	for i := 1; len(names) < count; i++ {
		var suffix string
		switch prefix {
		case domain.PrefixCount:
			suffix = fmt.Sprintf("%d", i)
		case domain.PrefixRandom:
			suffix = fmt.Sprintf("%d", domain.RandomSuffixMin+rng.Intn(domain.RandomSuffixSpace))
		case domain.PrefixUUID:
			suffix = uuid.NewString()[:8]
		}
		name := fmt.Sprintf("%s_%s%s", base, suffix, Extension)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}
