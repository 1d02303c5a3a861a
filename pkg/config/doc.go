// Package config loads tiabridge configuration files.
//
// Configuration is written in CUE and unified with a closed #Config schema
// before it is decoded, so type errors and misspelled fields are reported
// with file positions. The decoded values are laid over Default() and then
// checked with validator struct tags.
//
//	environment: {
//		driver:  "fixture"
//		fixture: "plant.yaml"
//	}
//	project: patterns: ["*.ap17", "*.ap18"]
//	logging: level: "debug"
//	output: format: "table"
//	store: path: "history.db"
//
// Relative paths are resolved against the directory of the configuration
// file. Command-line flags override file values; see cmd/tiabridge.
package config
