package domain

import "time"

// Phase is a named, cumulative increment of the schema and the unit of
// migration scheduling. Phase2 implies all Phase1 objects remain.
type Phase string

const (
	Phase1 Phase = "phase1"
	Phase2 Phase = "phase2"
)

// PhaseRank orders phases for cumulative comparisons. The empty phase
// (schema absent) ranks below phase1.
func PhaseRank(p Phase) int {
	switch p {
	case Phase1:
		return 1
	case Phase2:
		return 2
	default:
		return 0
	}
}

// MigrationStatus tracks the lifecycle of a unit or a whole phase.
type MigrationStatus string

const (
	StatusPending    MigrationStatus = "pending"
	StatusInProgress MigrationStatus = "in_progress"
	StatusCompleted  MigrationStatus = "completed"
	StatusFailed     MigrationStatus = "failed"
)

// UnitStatus is the recorded outcome of one migration unit.
type UnitStatus struct {
	Name             string
	Status           MigrationStatus
	RecordsProcessed int
	StartTime        time.Time
	EndTime          time.Time
	Error            string
}

// PhaseSummary aggregates unit outcomes for one phase run. It is returned
// to the caller even when the phase failed, so partial success stays
// inspectable.
type PhaseSummary struct {
	Phase                 Phase
	Status                MigrationStatus
	StartTime             time.Time
	EndTime               time.Time
	UnitStatuses          []UnitStatus
	TotalRecordsProcessed int
	TotalErrors           int
	BackupPath            string
}

// FailedUnits returns the names of units that did not complete.
func (s *PhaseSummary) FailedUnits() []string {
	var failed []string
	for _, u := range s.UnitStatuses {
		if u.Status == StatusFailed {
			failed = append(failed, u.Name)
		}
	}
	return failed
}

// IntegrityCount compares a legacy record count against a stored row count.
type IntegrityCount struct {
	Expected int
	Actual   int
}

// IntegrityResult is the outcome of post-migration verification.
type IntegrityResult struct {
	IsValid bool
	Errors  []string
	Counts  map[string]IntegrityCount
}

// ValidationResult reports how an installation's schema compares against an
// expected phase. Findings are reported, never raised.
type ValidationResult struct {
	ExpectedPhase        Phase
	StoredPhase          Phase
	PhaseMatches         bool
	MissingTables        []string
	MissingIndexes       []string
	ForeignKeyViolations []string
	Errors               []string
}

// IsValid reports whether the installation matches the expected phase with
// no missing objects and no constraint violations.
func (v *ValidationResult) IsValid() bool {
	return v.PhaseMatches &&
		len(v.MissingTables) == 0 &&
		len(v.MissingIndexes) == 0 &&
		len(v.ForeignKeyViolations) == 0 &&
		len(v.Errors) == 0
}
