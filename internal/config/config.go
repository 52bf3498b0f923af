// Package config loads the generator's run configuration from a YAML
// file. Every field has a flag counterpart; flags win over the file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes one generation run.
type Config struct {
	// Dumps are the AST dump files to index, in order. Order matters:
	// it fixes discovery order and therefore output order.
	Dumps []string `yaml:"dumps"`

	// Classes optionally restricts generation to the named classes and
	// their superclass chains. Empty means everything discovered.
	Classes []string `yaml:"classes"`

	// Package is the package name of the generated files.
	Package string `yaml:"package"`

	// Output is the directory generated files are written to.
	Output string `yaml:"output"`

	// MinOS drops declarations introduced after this version. Empty
	// disables availability filtering.
	MinOS string `yaml:"minOS"`

	// ForceClean skips the interactive prompt before clearing a
	// non-empty output directory.
	ForceClean bool `yaml:"forceClean"`
}

// Default is the configuration a run starts from before the file and
// flags are applied.
func Default() Config {
	return Config{
		Package: "bindings",
		Output:  "./output/",
	}
}

// Load reads path into a Config on top of the defaults. A missing file
// is an error: the caller decides whether a config file is optional.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first problem that would make the run fail late.
func (c Config) Validate() error {
	if len(c.Dumps) == 0 {
		return fmt.Errorf("no AST dump files configured")
	}
	for _, d := range c.Dumps {
		if _, err := os.Stat(d); err != nil {
			return fmt.Errorf("dump file %s: %w", d, err)
		}
	}
	if c.Package == "" {
		return fmt.Errorf("package name must not be empty")
	}
	if c.Output == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	return nil
}
