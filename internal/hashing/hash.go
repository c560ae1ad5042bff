package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/mmrzaf/jsonlgen/internal/domain"
)

// HashSchema fingerprints a compiled plan. Two schemas that compile to the
// same fields, order and rules hash the same, whatever their source text.
func HashSchema(plan *domain.Plan) (string, error) {
	if plan == nil {
		return "", fmt.Errorf("cannot hash a nil plan")
	}
	fields := make([]map[string]interface{}, len(plan.Fields))
	for i, f := range plan.Fields {
		fields[i] = map[string]interface{}{
			"name": f.Name,
			"rule": canonicalizeRule(f.Rule),
		}
	}
	return sum(map[string]interface{}{"fields": fields})
}

func canonicalizeRule(rule domain.Rule) map[string]interface{} {
	result := map[string]interface{}{"kind": rule.Kind}
	switch rule.Kind {
	case domain.RuleRandomInt:
		result["low"] = rule.Low
		result["high"] = rule.High
	case domain.RuleStaticInt:
		result["value"] = rule.IntValue
	case domain.RuleStaticStr:
		result["value"] = rule.StrValue
	case domain.RuleChoiceInt:
		result["options"] = rule.IntOptions
	case domain.RuleChoiceStr:
		result["options"] = rule.StrOptions
	}
	return result
}

func sum(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}
