// Package environments holds the registry of engineering environment drivers.
//
// A driver adapts one vendor automation interface to the engine.Environment
// boundary and narrows what it reports (software kinds, block shapes) before
// handing it to the core. Drivers register a Factory by name; the CLI picks
// one with the --environment flag or the environment.driver setting.
//
// The fixture subpackage provides an offline driver that reads a YAML
// description of what an environment would report.
package environments
