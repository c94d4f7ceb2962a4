package history

import (
	"time"
)

const SchemaVersion = 2

// Run is the persisted summary of one analysis run.
type Run struct {
	ID            string        `json:"id"`
	Project       string        `json:"project"`
	SchemaVersion int           `json:"schema_version"`
	Timestamp     time.Time     `json:"timestamp"`
	ModuleCount   int           `json:"module_count"`
	EdgeCount     int           `json:"edge_count"`
	CycleCount    int           `json:"cycle_count"`
	NodesInCycles int           `json:"nodes_in_cycles"`
	Participation float64       `json:"participation_pct"`
	Suggestions   int           `json:"suggestion_count"`
	EasyCount     int           `json:"easy_count"`
	MediumCount   int           `json:"medium_count"`
	HardCount     int           `json:"hard_count"`
	Fallbacks     int           `json:"fallback_count"`
	Partial       bool          `json:"partial"`
	Scores        []ModuleScore `json:"scores,omitempty"`
}

// ModuleScore is one module's extraction score within a run.
type ModuleScore struct {
	Module      string  `json:"module"`
	Final       float64 `json:"final"`
	Band        string  `json:"band"`
	Coupling    float64 `json:"coupling"`
	Complexity  float64 `json:"complexity"`
	VersionDebt float64 `json:"version_debt"`
	Exposure    float64 `json:"exposure"`
}

type TrendPoint struct {
	RunID              string    `json:"run_id"`
	Timestamp          time.Time `json:"timestamp"`
	ModuleCount        int       `json:"module_count"`
	CycleCount         int       `json:"cycle_count"`
	Participation      float64   `json:"participation_pct"`
	HardCount          int       `json:"hard_count"`
	DeltaModules       int       `json:"delta_modules"`
	DeltaCycles        int       `json:"delta_cycles"`
	DeltaParticipation float64   `json:"delta_participation_pct"`
	DeltaHard          int       `json:"delta_hard"`
	AvgCycles          float64   `json:"avg_cycles"`
	WindowHours        float64   `json:"window_hours"`
}

// ModuleDelta compares one module's score across the last two runs.
type ModuleDelta struct {
	Module   string  `json:"module"`
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
	Delta    float64 `json:"delta"`
	// New is set when the module was absent from the previous run.
	New bool `json:"new,omitempty"`
}

type TrendReport struct {
	Project       string        `json:"project"`
	SchemaVersion int           `json:"schema_version"`
	Since         time.Time     `json:"since"`
	Until         time.Time     `json:"until"`
	Window        string        `json:"window"`
	RunCount      int           `json:"run_count"`
	Points        []TrendPoint  `json:"points"`
	Modules       []ModuleDelta `json:"modules,omitempty"`
}
