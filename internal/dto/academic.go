package dto

import (
	"time"

	"github.com/noah-isme/ipes-academic-api/internal/models"
)

// RecordRegularityRequest writes a regularity sheet line. The write is scoped either by the
// commission or by (subject, virtual year); when neither commission nor virtual year is given
// the closing date's year is used.
type RecordRegularityRequest struct {
	StudentID     string                     `json:"student_id" validate:"required"`
	SubjectID     string                     `json:"subject_id" validate:"required"`
	CommissionID  *string                    `json:"commission_id,omitempty"`
	VirtualYear   *int                       `json:"virtual_year,omitempty" validate:"omitempty,gte=2000,lte=2100"`
	Situation     models.RegularitySituation `json:"situation" validate:"required"`
	ClosingDate   time.Time                  `json:"closing_date" validate:"required"`
	FinalScore    *float64                   `json:"final_score,omitempty" validate:"omitempty,gte=0,lte=10"`
	AttendancePct *float64                   `json:"attendance_pct,omitempty" validate:"omitempty,gte=0,lte=100"`
	Observations  string                     `json:"observations,omitempty" validate:"max=500"`
}

// CloseSheetRequest closes a regularity grading sheet.
type CloseSheetRequest struct {
	CommissionID *string `json:"commission_id,omitempty"`
	SubjectID    *string `json:"subject_id,omitempty"`
	VirtualYear  *int    `json:"virtual_year,omitempty"`
}

// RecordResultRequest stores the outcome of an exam sign-up. Either Score or Condition is given.
type RecordResultRequest struct {
	Score     *float64               `json:"score,omitempty"`
	Condition models.SignupCondition `json:"condition,omitempty"`
}

// EquivalencyItem recognizes one subject with a score.
type EquivalencyItem struct {
	SubjectID string  `json:"subject_id" validate:"required"`
	Score     float64 `json:"score" validate:"gte=0,lte=10"`
}

// RegisterEquivalencyRequest registers an administrative equivalency disposition.
type RegisterEquivalencyRequest struct {
	StudentID        string            `json:"student_id" validate:"required"`
	CareerID         string            `json:"career_id" validate:"required"`
	PlanID           string            `json:"plan_id" validate:"required"`
	ResolutionNumber string            `json:"resolution_number" validate:"required,max=50"`
	ResolvedOn       time.Time         `json:"resolved_on" validate:"required"`
	Details          []EquivalencyItem `json:"details" validate:"required,min=1,dive"`
}

// CreateCorrelativityRequest adds a prerequisite edge.
type CreateCorrelativityRequest struct {
	SubjectID         string                   `json:"subject_id" validate:"required"`
	RequiredSubjectID string                   `json:"required_subject_id" validate:"required"`
	Kind              models.CorrelativityKind `json:"kind" validate:"required"`
}

// SubjectEligibility summarises what a student may do with one subject.
type SubjectEligibility struct {
	SubjectID        string             `json:"subject_id"`
	SubjectName      string             `json:"subject_name"`
	Year             int                `json:"year"`
	Passed           bool               `json:"passed"`
	ActiveRegularity *models.Regularity `json:"active_regularity,omitempty"`
	CanEnroll        bool               `json:"can_enroll"`
	EnrollViolations []models.Violation `json:"enroll_violations,omitempty"`
	CanSitRegular    bool               `json:"can_sit_regular"`
	ExamViolations   []models.Violation `json:"exam_violations,omitempty"`
}

// EligibilityOverview lists per-subject eligibility for a student within a plan.
type EligibilityOverview struct {
	StudentID string               `json:"student_id"`
	PlanID    string               `json:"plan_id"`
	Subjects  []SubjectEligibility `json:"subjects"`
}

// PassedStatus answers the completion oracle for one subject.
type PassedStatus struct {
	StudentID string `json:"student_id"`
	SubjectID string `json:"subject_id"`
	Passed    bool   `json:"passed"`
	Evidence  string `json:"evidence,omitempty"`
}

// MesaSignupRequest signs a student up to a mesa. Student principals may omit StudentID.
type MesaSignupRequest struct {
	StudentID string `json:"student_id"`
}

// WindowStatus reports the effective bounds of a window and whether it is open at request time.
type WindowStatus struct {
	Kind     models.WindowKind `json:"kind"`
	OpensAt  *time.Time        `json:"opens_at,omitempty"`
	ClosesAt *time.Time        `json:"closes_at,omitempty"`
	Open     bool              `json:"open"`
}

// SetWindowRequest stores the bounds of an enrollment window. A nil bound clears it.
type SetWindowRequest struct {
	OpensAt  *time.Time `json:"opens_at,omitempty"`
	ClosesAt *time.Time `json:"closes_at,omitempty"`
}
