package app

import (
	"context"
	"time"

	"github.com/mmrzaf/jsonlgen/internal/domain"
	"github.com/mmrzaf/jsonlgen/internal/infra/targets"
	"github.com/mmrzaf/jsonlgen/internal/validation"
)

// CheckTarget connects to a SQL target and reports latency and server version.
// The check is returned even when it fails so callers can print it.
func CheckTarget(ctx context.Context, t *domain.TargetConfig) (*domain.TargetCheck, error) {
	check := &domain.TargetCheck{
		Kind:        t.Kind,
		Destination: targets.Destination(t),
		CheckedAt:   time.Now().UTC(),
	}

	if err := validation.ValidateTarget(t); err != nil {
		check.Error = err.Error()
		return check, err
	}

	tgt, err := targets.New(t)
	if err != nil {
		check.Error = "unsupported target kind"
		return check, err
	}

	start := time.Now()
	if err := tgt.Connect(ctx); err != nil {
		check.Error = err.Error()
		check.LatencyMS = time.Since(start).Milliseconds()
		return check, err
	}
	defer tgt.Close()

	check.OK = true
	check.LatencyMS = time.Since(start).Milliseconds()
	if ver, verErr := tgt.ServerVersion(ctx); verErr == nil {
		check.ServerVersion = ver
	}
	return check, nil
}
