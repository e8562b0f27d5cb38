package parse

import (
	"encoding/csv"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ianhorswill/step/runtime"
	"github.com/ianhorswill/step/term"
)

// ParseCSVRows reads a `.csv`/`.tsv` file's rows (spec §4.8: "a CSV
// tokenizer is a separate variant producing tokens row-by-row") using the
// standard library's encoding/csv rather than hand-rolling a row scanner —
// quoting, embedded delimiters, and escaped quotes are exactly what
// encoding/csv already handles correctly, and no example repo in the pack
// reaches for a third-party CSV library for this.
func ParseCSVRows(data string, delimiter rune) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(data))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// CompileTable compiles one `.csv`/`.tsv` fact table (spec §6): every row
// becomes a method for a predicate named by the file's capitalized
// basename; header cells ending `?` declare unary predicates set when the
// cell's value is truthy; headers starting `@` declare binary predicates
// pairing the row's primary key with that cell's value; `[#]` as the first
// header names the method-weight column instead of a predicate.
func (c *Compiler) CompileTable(path string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	header := rows[0]
	predicate := tablePredicateName(path)

	weightCol := -1
	type col struct {
		index int
		name  string
		kind  byte // '?' unary, '@' binary, ' ' plain positional argument
	}
	var cols []col
	for i, h := range header {
		h = strings.TrimSpace(h)
		switch {
		case h == "[#]":
			weightCol = i
		case strings.HasSuffix(h, "?"):
			cols = append(cols, col{index: i, name: strings.TrimSuffix(h, "?"), kind: '?'})
		case strings.HasPrefix(h, "@"):
			cols = append(cols, col{index: i, name: strings.TrimPrefix(h, "@"), kind: '@'})
		default:
			cols = append(cols, col{index: i, name: h, kind: ' '})
		}
	}

	mainTask := c.Reg.EnsureTask(predicate)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		weight := 1
		if weightCol >= 0 && weightCol < len(row) {
			if w, err := strconv.Atoi(strings.TrimSpace(row[weightCol])); err == nil {
				weight = w
			}
		}

		var mainArgs []term.Value
		for _, cl := range cols {
			if cl.kind != ' ' {
				continue
			}
			mainArgs = append(mainArgs, cellValue(cellAt(row, cl.index)))
		}
		// The first plain (non-`?`/`@`) column is the row's primary key,
		// shared with any `?`/`@` extension predicates this row also
		// declares — if a table has no plain column at all, each row has
		// no identity to extend, so `?`/`@` headers are simply skipped.
		var key term.Value
		haveKey := len(mainArgs) > 0
		if haveKey {
			key = mainArgs[0]
		}
		m := runtime.NewMethod(mainTask, mainArgs, nil, nil, nil, path, 0)
		m.Weight = weight
		mainTask.AddMethod(m)

		if !haveKey {
			continue
		}
		for _, cl := range cols {
			switch cl.kind {
			case '?':
				if isTruthy(cellAt(row, cl.index)) {
					task := c.Reg.EnsureTask(cl.name)
					task.AddMethod(runtime.NewMethod(task, []term.Value{key}, nil, nil, nil, path, 0))
				}
			case '@':
				v := cellAt(row, cl.index)
				if v != "" {
					task := c.Reg.EnsureTask(cl.name)
					task.AddMethod(runtime.NewMethod(task, []term.Value{key, cellValue(v)}, nil, nil, nil, path, 0))
				}
			}
		}
	}
	return nil
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

var truthyValues = map[string]bool{"yes": true, "y": true, "true": true, "t": true, "x": true}

func isTruthy(s string) bool {
	return truthyValues[strings.ToLower(s)]
}

// cellValue compiles one table cell into a term.Value: an integer or float
// if the text parses as one, otherwise a plain string (table cells never
// denote local variables or state elements — spec §6 only describes them
// as holding facts, not patterns).
func cellValue(s string) term.Value {
	if i, err := strconv.ParseInt(s, 10, 32); err == nil {
		return term.Int(int32(i))
	}
	if f, err := strconv.ParseFloat(s, 32); err == nil {
		return term.Float(float32(f))
	}
	return term.Str(s)
}

// tablePredicateName capitalizes a `.csv`/`.tsv` file's basename into its
// predicate name (spec §6: "a predicate named by the file's capitalized
// basename").
func tablePredicateName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" {
		return base
	}
	r := []rune(base)
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
