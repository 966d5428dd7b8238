package models

import "time"

// EquivalencyDisposition is an administrative resolution recognizing external credit.
type EquivalencyDisposition struct {
	ID               string              `db:"id" json:"id"`
	StudentID        string              `db:"student_id" json:"student_id"`
	CareerID         string              `db:"career_id" json:"career_id"`
	PlanID           string              `db:"plan_id" json:"plan_id"`
	ResolutionNumber string              `db:"resolution_number" json:"resolution_number"`
	ResolvedOn       time.Time           `db:"resolved_on" json:"resolved_on"`
	CreatedBy        string              `db:"created_by" json:"created_by"`
	CreatedAt        time.Time           `db:"created_at" json:"created_at"`
	Details          []EquivalencyDetail `json:"details"`
}

// EquivalencyDetail recognizes one subject of the disposition's plan.
type EquivalencyDetail struct {
	ID            string  `db:"id" json:"id"`
	DispositionID string  `db:"disposition_id" json:"disposition_id"`
	SubjectID     string  `db:"subject_id" json:"subject_id"`
	Score         float64 `db:"score" json:"score"`
}

// ActaSource tells where a historical grade line came from.
type ActaSource string

const (
	ActaSourceExam        ActaSource = "MESA"
	ActaSourceEquivalency ActaSource = "EQUIVALENCIA"
	ActaSourceLegacy      ActaSource = "HISTORICO"
)

// ActaRecord is a line of a grade book (acta). It is matched to students by national ID,
// and Grade is kept verbatim because legacy books hold administrative codes such as "AJ".
type ActaRecord struct {
	ID                  string     `db:"id" json:"id"`
	StudentDNI          string     `db:"student_dni" json:"student_dni"`
	SubjectID           string     `db:"subject_id" json:"subject_id"`
	Source              ActaSource `db:"source" json:"source"`
	Grade               string     `db:"grade" json:"grade"`
	Book                string     `db:"book" json:"book,omitempty"`
	Folio               string     `db:"folio" json:"folio,omitempty"`
	ExamDate            time.Time  `db:"exam_date" json:"exam_date"`
	EquivalencyDetailID *string    `db:"equivalency_detail_id" json:"equivalency_detail_id,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
}
