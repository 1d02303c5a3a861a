package config

import (
	"fmt"

	"cuelang.org/go/cue"
)

// schemaSource is the CUE definition every configuration file is unified
// with. Definitions are closed, so misspelled fields are rejected.
const schemaSource = `
#Config: {
	environment?: {
		driver?:  string & !=""
		fixture?: string
		options?: {[string]: string}
	}

	project?: {
		patterns?: [...string & !=""]
	}

	logging?: {
		level?:       "trace" | "debug" | "info" | "warn" | "error"
		format?:      "console" | "json"
		output?:      string
		caller?:      bool
		no_color?:    bool
		time_format?: "rfc3339" | "kitchen"
	}

	tracing?: {
		enabled?:  bool
		exporter?: "otlp" | "stdout" | "none"
		endpoint?: string
		insecure?: bool
		timeout?:  =~"^[0-9]+(ms|s|m)$"
	}

	metrics?: {
		file?:      string
		namespace?: =~"^[a-zA-Z_][a-zA-Z0-9_]*$"
	}

	output?: {
		format?: "text" | "table" | "json"
	}

	classifier?: {
		script?: string
	}

	store?: {
		path?: string
	}
}
`

// compileSchema compiles the #Config definition in ctx.
func compileSchema(ctx *cue.Context) (cue.Value, error) {
	val := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := val.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("failed to compile config schema: %w", err)
	}
	def := val.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("config schema has no #Config definition: %w", err)
	}
	return def, nil
}
