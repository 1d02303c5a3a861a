// Package project resolves user input to a project file, opens it in an
// engineering session and discovers the controller program it hosts.
//
// Resolution is purely a filesystem concern and needs no session:
//
//	loc := project.NewLocator(logger, env.ProjectPatterns())
//	path, err := loc.Resolve(`"C:\Projects\Line4"`)
//
// Opening and controller discovery go through an Opener bound to the run's
// telemetry. Errors carry the engine error classes that decide the exit code:
// ErrorClassNotFound for resolution, ErrorClassEngineering or ErrorClassOther
// for opening, and ErrorClassNoController when no device hosts a program.
package project
