package config

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// ValidationError lists every schema violation found.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// validateSchema unifies a JSON document with #Config and requires every
// field to be concrete.
func validateSchema(doc []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	value := ctx.CompileBytes(doc, cue.Filename("config.json"))
	if err := value.Err(); err != nil {
		return fmt.Errorf("config document: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		verr := &ValidationError{}
		for _, e := range errors.Errors(err) {
			verr.Problems = append(verr.Problems, e.Error())
		}
		if len(verr.Problems) == 0 {
			verr.Problems = []string{err.Error()}
		}
		return verr
	}
	return nil
}
