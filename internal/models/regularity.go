package models

import "time"

// RegularitySituation is the outcome recorded on a regularity sheet.
type RegularitySituation string

const (
	SituationRegular   RegularitySituation = "REGULAR"
	SituationPromoted  RegularitySituation = "PROMOCIONADO"
	SituationApproved  RegularitySituation = "APROBADO"
	SituationFailed    RegularitySituation = "DESAPROBADO"
	SituationFree      RegularitySituation = "LIBRE"
	SituationAbandoned RegularitySituation = "ABANDONO"
)

// Valid reports whether s is a known situation.
func (s RegularitySituation) Valid() bool {
	switch s {
	case SituationRegular, SituationPromoted, SituationApproved, SituationFailed, SituationFree, SituationAbandoned:
		return true
	}
	return false
}

// Passed reports whether the situation is a terminal "passed" signal.
func (s RegularitySituation) Passed() bool {
	return s == SituationPromoted || s == SituationApproved
}

// Regularity is a per-student, per-subject coursework outcome. Rows with SupersededAt set
// are history kept for audit; at most one row per (student, subject) is current.
type Regularity struct {
	ID            string              `db:"id" json:"id"`
	StudentID     string              `db:"student_id" json:"student_id"`
	SubjectID     string              `db:"subject_id" json:"subject_id"`
	CommissionID  *string             `db:"commission_id" json:"commission_id,omitempty"`
	Situation     RegularitySituation `db:"situation" json:"situation"`
	ClosingDate   time.Time           `db:"closing_date" json:"closing_date"`
	FinalScore    *float64            `db:"final_score" json:"final_score,omitempty"`
	AttendancePct *float64            `db:"attendance_pct" json:"attendance_pct,omitempty"`
	Observations  string              `db:"observations" json:"observations,omitempty"`
	RecordedBy    string              `db:"recorded_by" json:"recorded_by"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	SupersededAt  *time.Time          `db:"superseded_at" json:"superseded_at,omitempty"`
}

// LockScope identifies the grading sheet a regularity write belongs to.
// Exactly one of CommissionID or (SubjectID, VirtualYear) must be populated.
type LockScope struct {
	CommissionID *string `db:"commission_id" json:"commission_id,omitempty"`
	SubjectID    *string `db:"subject_id" json:"subject_id,omitempty"`
	VirtualYear  *int    `db:"virtual_year" json:"virtual_year,omitempty"`
}

// ByCommission reports whether the scope is the commission mode.
func (s LockScope) ByCommission() bool {
	return s.CommissionID != nil && *s.CommissionID != ""
}

// BySubjectYear reports whether the scope is the (subject, virtual year) mode.
func (s LockScope) BySubjectYear() bool {
	return s.SubjectID != nil && *s.SubjectID != "" && s.VirtualYear != nil
}

// Valid reports whether exactly one scoping mode is populated.
func (s LockScope) Valid() bool {
	return s.ByCommission() != s.BySubjectYear()
}

// PlanillaLock marks a regularity grading sheet as closed.
type PlanillaLock struct {
	ID string `db:"id" json:"id"`
	LockScope
	ClosedAt time.Time `db:"closed_at" json:"closed_at"`
	ClosedBy string    `db:"closed_by" json:"closed_by"`
}
