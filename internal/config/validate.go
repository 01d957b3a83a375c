// CUE schema validation code
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var defaultSchema []byte

// Validate checks data (YAML or JSON) against the named definition of the
// schema. An empty schemaPath uses the built-in schema.
func Validate(filename string, data []byte, schemaPath, definition string) error {
	schemaBytes := defaultSchema
	if schemaPath != "" {
		b, err := os.ReadFile(schemaPath)
		if err != nil {
			return fmt.Errorf("cannot read CUE schema: %w", err)
		}
		schemaBytes = b
	}

	ctx := cuecontext.New()
	schemaVal := ctx.CompileBytes(schemaBytes, cue.Filename("schema.cue"))
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("cannot compile CUE schema: %w", err)
	}
	def := schemaVal.LookupPath(cue.ParsePath(definition))
	if !def.Exists() {
		return fmt.Errorf("schema has no %s definition", definition)
	}

	file, err := yaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("cannot parse %s: %w", filename, err)
	}
	dataVal := ctx.BuildFile(file)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("cannot build %s: %w", filename, err)
	}

	final := def.Unify(dataVal)
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s: schema validation failed: %w", filename, err)
	}
	return nil
}

// ValidateWithCue validates a YAML configuration file using a CUE schema file.
func ValidateWithCue(configFile, cueFile string) error {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("cannot read YAML config: %w", err)
	}
	return Validate(configFile, data, cueFile, "#Config")
}
