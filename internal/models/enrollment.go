package models

import "time"

// EnrollmentStatus represents the lifecycle of a subject enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusPending   EnrollmentStatus = "PENDING"
	EnrollmentStatusConfirmed EnrollmentStatus = "CONFIRMED"
	EnrollmentStatusCancelled EnrollmentStatus = "CANCELLED"
)

// Enrollment captures a student's registration to a subject offering within an academic year.
type Enrollment struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	SubjectID    string           `db:"subject_id" json:"subject_id"`
	CommissionID string           `db:"commission_id" json:"commission_id"`
	AcademicYear int              `db:"academic_year" json:"academic_year"`
	Status       EnrollmentStatus `db:"status" json:"status"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	CancelledAt  *time.Time       `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// Commission is a scheduled offering (section) of a subject for one academic year.
type Commission struct {
	ID           string    `db:"id" json:"id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	AcademicYear int       `db:"academic_year" json:"academic_year"`
	Code         string    `db:"code" json:"code"`
	Shift        string    `db:"shift" json:"shift"`
	Capacity     int       `db:"capacity" json:"capacity"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CommissionDetail adds the derived roster size.
type CommissionDetail struct {
	Commission
	SubjectName string `db:"subject_name" json:"subject_name"`
	RosterSize  int    `db:"roster_size" json:"roster_size"`
}

// CommissionFilter provides filters for listing commissions.
type CommissionFilter struct {
	SubjectID    string
	AcademicYear int
	Page         int
	PageSize     int
}
