package module

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/ianhorswill/step/parse"
)

// LoadDirectory loads every recognized source file under dir (spec §6
// "load_directory(path) loads every source file in path"), `.step` files
// through the method compiler and `.csv`/`.tsv` files as fact tables,
// visited in directory order (spec §5 "method try-order matches source
// order... later files' methods are simply later clauses"). Every
// SyntaxError encountered is collected rather than stopping at the first,
// via go-multierror, the same batching nomad's config loader uses so one
// `load_directory` call reports every problem at once.
func (m *Module) LoadDirectory(dir string) error {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if m.recognizedExtension(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(paths)

	var errs *multierror.Error
	for _, p := range paths {
		if loadErr := m.LoadFile(p); loadErr != nil {
			errs = multierror.Append(errs, loadErr)
		}
	}
	return errs.ErrorOrNil()
}

func (m *Module) recognizedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range m.config.StepExtensions {
		if ext == e {
			return true
		}
	}
	for _, e := range m.config.TableExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// LoadFile loads one source file, dispatching on extension (spec §6
// "load_file(path) adds one file").
func (m *Module) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range m.config.TableExtensions {
		if ext == e {
			return m.loadTable(path, string(data), tableDelimiter(e))
		}
	}
	return m.loadStepSource(path, string(data))
}

// AddDefinitions parses each of sources as `.step` source text (spec §6
// "add_definitions(source…) parses source strings"), attributing
// diagnostics to a synthetic "<definitions>" path since there is no file on
// disk behind them.
func (m *Module) AddDefinitions(sources ...string) error {
	var errs *multierror.Error
	for i, src := range sources {
		path := "<definitions>"
		if len(sources) > 1 {
			path = "<definitions[" + itoa(i) + "]>"
		}
		if err := m.loadStepSource(path, src); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

func (m *Module) loadStepSource(path, src string) error {
	c := parse.NewCompiler(m.Registry, path)
	c.Warn = func(path string, line int, format string, args ...interface{}) {
		m.config.Logger.Warn("parse warning", "path", path, "line", line, "message", fmt.Sprintf(format, args...))
	}
	return c.Compile(src)
}

func (m *Module) loadTable(path, data string, delimiter rune) error {
	rows, err := parse.ParseCSVRows(data, delimiter)
	if err != nil {
		return err
	}
	c := parse.NewCompiler(m.Registry, path)
	return c.CompileTable(path, rows)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
