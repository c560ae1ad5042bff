package main

import (
	"strings"

	"github.com/spf13/pflag"
)

// legacyAliases are the multi-letter single-dash flags of the original tool.
var legacyAliases = map[string]string{
	"fc": "file_count",
	"fn": "file_name",
	"fp": "prefix",
	"ds": "data_schema",
	"dl": "data_lines",
	"cp": "clear_path",
}

var underscoreFlags = map[string]struct{}{
	"file_count": {}, "file_name": {}, "data_schema": {}, "data_lines": {}, "clear_path": {},
}

// rewriteLegacyArgs turns -fc 3 and -fc=3 into --fc 3 and --fc=3 so pflag does
// not read them as stacked shorthands. Everything after "--" is left alone.
func rewriteLegacyArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i, arg := range out {
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "--") {
			continue
		}
		name, _, _ := strings.Cut(arg[1:], "=")
		if _, ok := legacyAliases[name]; ok {
			out[i] = "-" + arg
		}
	}
	return out
}

// normalizeFlagName maps legacy aliases to their long names and accepts
// hyphenated spellings of the underscore flags.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if canonical, ok := legacyAliases[name]; ok {
		return pflag.NormalizedName(canonical)
	}
	if alt := strings.ReplaceAll(name, "-", "_"); alt != name {
		if _, ok := underscoreFlags[alt]; ok {
			return pflag.NormalizedName(alt)
		}
	}
	return pflag.NormalizedName(name)
}
