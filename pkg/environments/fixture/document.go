package fixture

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Document is the YAML description of what an engineering environment reports.
//
//	patterns: ["*.projx"]
//	projects:
//	  demo.projx:
//	    name: Demo
//	    devices:
//	      - name: PLC_1
//	        items:
//	          - name: CPU 1516
//	            software:
//	              kind: controller
//	              name: PLC_1
//	              program:
//	                blocks:
//	                  - {name: DB1, number: 1, type: GlobalDB}
//	                groups:
//	                  - name: Motors
//	                    blocks:
//	                      - {name: MotorFB, number: 10, type: FB}
//
// A group without a blocks or groups key does not expose that collection.
// A block without a name or number key does not report that field.
type Document struct {
	// Patterns are the project file globs the environment opens.
	Patterns []string `yaml:"patterns" validate:"dive,required"`

	// StartError makes Start fail with this message.
	StartError string `yaml:"start_error,omitempty"`

	// CloseError makes Close fail with this message.
	CloseError string `yaml:"close_error,omitempty"`

	// Projects are keyed by project file base name.
	Projects map[string]ProjectSpec `yaml:"projects" validate:"dive"`
}

// ProjectSpec describes one project.
type ProjectSpec struct {
	Name      string       `yaml:"name"`
	OpenError *OpenError   `yaml:"open_error,omitempty"`
	Devices   []DeviceSpec `yaml:"devices" validate:"dive"`

	// DevicesError makes device enumeration fail with this message.
	DevicesError string `yaml:"devices_error,omitempty"`
}

// OpenError makes opening the project fail.
type OpenError struct {
	// Kind is locked, version, engineering or other.
	Kind    string `yaml:"kind" validate:"required,oneof=locked version engineering other"`
	Message string `yaml:"message"`
}

// DeviceSpec describes a device.
type DeviceSpec struct {
	Name       string     `yaml:"name" validate:"required"`
	Items      []ItemSpec `yaml:"items" validate:"dive"`
	ItemsError string     `yaml:"items_error,omitempty"`
}

// ItemSpec describes a device item. Items without software host none.
type ItemSpec struct {
	Name     string        `yaml:"name" validate:"required"`
	Software *SoftwareSpec `yaml:"software,omitempty"`
}

// SoftwareSpec describes the software hosted on an item.
type SoftwareSpec struct {
	Kind    string     `yaml:"kind" validate:"required,oneof=controller hmi unknown"`
	Name    string     `yaml:"name"`
	Error   string     `yaml:"error,omitempty"`
	Program *GroupSpec `yaml:"program,omitempty"`
}

// GroupSpec describes a block group.
type GroupSpec struct {
	Name   string       `yaml:"name,omitempty"`
	Blocks *[]BlockSpec `yaml:"blocks,omitempty" validate:"omitempty,dive"`
	Groups *[]GroupSpec `yaml:"groups,omitempty" validate:"omitempty,dive"`

	// BlocksError and GroupsError make the collection reads fail.
	BlocksError string `yaml:"blocks_error,omitempty"`
	GroupsError string `yaml:"groups_error,omitempty"`
}

// BlockSpec describes a block.
type BlockSpec struct {
	Name   *string `yaml:"name,omitempty"`
	Number *int    `yaml:"number,omitempty"`
	Type   string  `yaml:"type" validate:"required"`
}

// Load reads and validates the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes and validates a YAML document. Unknown keys are rejected.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}

	if err := validator.New().Struct(&doc); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}

	return &doc, nil
}
