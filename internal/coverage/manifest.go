// Package coverage loads the per-module manifest of mandatory measure
// categories. The list is configuration, not code: modules gain or lose
// mandatory categories without a rebuild.
package coverage

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Manifest maps module names to their mandatory measure categories.
type Manifest struct {
	Modules map[string]ModuleCoverage `yaml:"modules"`
}

// ModuleCoverage is the coverage requirement for one module.
type ModuleCoverage struct {
	Categories []string `yaml:"categories"`
}

// Categories returns the mandatory categories for a module, or nil when
// the module is not listed.
func (m *Manifest) Categories(module string) []string {
	if m == nil {
		return nil
	}
	return m.Modules[module].Categories
}

// Load reads a manifest from a YAML file.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "coverage: read manifest %s", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, eris.Wrapf(err, "coverage: parse manifest %s", path)
	}
	return &m, nil
}

// Default is the envelope-module manifest used when no file is configured.
func Default() *Manifest {
	return &Manifest{Modules: map[string]ModuleCoverage{
		"envelope": {Categories: []string{"wall", "roof_ceiling", "floor", "windows_doors"}},
	}}
}
