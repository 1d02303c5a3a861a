// Package engine provides the core types and interfaces shared by tiabridge.
//
// # Overview
//
// tiabridge opens an engineering project through an external engineering
// environment, locates the project's controller program and lists the
// program's blocks. The environment itself is an external collaborator; this
// package only describes its boundary:
//
//	Environment.Start(mode)            -> Session
//	Session.OpenProject(path)          -> Project
//	Project.Devices()                  -> []Device
//	Device.Items()                     -> []DeviceItem
//	DeviceItem.SoftwareContainer()     -> SoftwareContainer, ok
//	SoftwareContainer.Software()       -> Software (tagged variant)
//	Software.AsController()            -> *ControllerProgram, ok
//
// # Block hierarchy
//
// A controller program exposes a tree of GroupNode values. Nodes are not
// uniform: each may implement BlockLister, GroupLister, both or neither, and
// blocks may or may not implement Named and Numbered. Consumers probe these
// capabilities instead of assuming them (see pkg/blocks).
//
// # Errors
//
// Failures are reported as *EngineError values classified by ErrorClass.
// ExitCode maps a failure to the process exit code:
//
//	0  success
//	1  invalid arguments
//	2  no controller program found
//	3  project-open failure
//	99 unhandled failure
package engine
