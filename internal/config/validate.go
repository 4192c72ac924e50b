package config

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaSource string

// ValidateSchema checks a JSON or YAML document against the embedded CUE schema.
// Unknown fields, wrong types and out-of-range values are rejected here.
func ValidateSchema(name string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	file, err := cueyaml.Extract(name, data)
	if err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrInvalid, name, err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrInvalid, name, err)
	}

	final := schema.LookupPath(cue.ParsePath("#Config")).Unify(doc)
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s: schema validation failed: %v", ErrInvalid, name, err)
	}
	return nil
}
