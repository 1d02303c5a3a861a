package stores

import (
	"time"

	"github.com/piwi3910/tiabridge/pkg/engine"
)

// InspectionStatus represents the outcome of an inspection
type InspectionStatus string

const (
	InspectionStatusRunning   InspectionStatus = "running"
	InspectionStatusCompleted InspectionStatus = "completed"
	InspectionStatusFailed    InspectionStatus = "failed"
)

// Inspection is one recorded listing run against a project
type Inspection struct {
	ID          string           `json:"id"`
	RunID       string           `json:"run_id"`
	ProjectPath string           `json:"project_path"`
	ProjectName *string          `json:"project_name,omitempty"`
	Controller  *string          `json:"controller,omitempty"`
	Mode        engine.Mode      `json:"mode"`
	Status      InspectionStatus `json:"status"`
	ErrorClass  *string          `json:"error_class,omitempty"`
	Error       *string          `json:"error,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`

	// DataUnits and FunctionUnits are filled by ListInspections.
	DataUnits     int `json:"data_units"`
	FunctionUnits int `json:"function_units"`
}

// UnitRecord is a listed unit stored with its inspection
type UnitRecord struct {
	InspectionID string          `json:"inspection_id"`
	Category     engine.Category `json:"category"`
	Position     int             `json:"position"`
	engine.UnitRef
}

// InspectionResult carries the outcome written by CompleteInspection
type InspectionResult struct {
	Status      InspectionStatus
	ProjectName string
	Controller  string
	Err         error
}
