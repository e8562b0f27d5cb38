package main

import (
	"strconv"

	"github.com/ianhorswill/step/term"
)

// parseArgs converts CLI argument strings into term.Value call arguments:
// "true"/"false" become booleans, and everything else follows the same
// int/float/string fallback cellValue uses for CSV/TSV table cells: a
// command-line argument has no syntax for patterns or local variables
// either, just literal data.
func parseArgs(args []string) []term.Value {
	vals := make([]term.Value, len(args))
	for i, a := range args {
		vals[i] = parseArg(a)
	}
	return vals
}

func parseArg(s string) term.Value {
	if s == "true" {
		return term.Bool(true)
	}
	if s == "false" {
		return term.Bool(false)
	}
	if i, err := strconv.ParseInt(s, 10, 32); err == nil {
		return term.Int(int32(i))
	}
	if f, err := strconv.ParseFloat(s, 32); err == nil {
		return term.Float(float32(f))
	}
	return term.Str(s)
}
