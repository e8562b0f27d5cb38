package module

import "github.com/ianhorswill/step/introspect"

// Lint runs spec §4.9's module-finalization checks (undefined-task and
// unused-task warnings) over everything currently loaded, logging through
// the module's configured logger.
func (m *Module) Lint() ([]introspect.LintWarning, error) {
	return introspect.Lint(m.Registry, m.config.Logger)
}
