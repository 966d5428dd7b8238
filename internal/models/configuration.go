package models

import "time"

// Configuration is a persisted key/value setting. Window bounds are stored as RFC3339 strings
// under "<window>_opens_at" / "<window>_closes_at".
type Configuration struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedBy *string   `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// WindowKind names an enrollment window.
type WindowKind string

const (
	WindowSubjectEnrollment WindowKind = "subject_enrollment"
	WindowExamSignup        WindowKind = "exam_signup"
)

// Valid reports whether k names a known window.
func (k WindowKind) Valid() bool {
	return k == WindowSubjectEnrollment || k == WindowExamSignup
}

// OpensAtKey is the configuration key holding the window start.
func (k WindowKind) OpensAtKey() string { return string(k) + "_opens_at" }

// ClosesAtKey is the configuration key holding the window end.
func (k WindowKind) ClosesAtKey() string { return string(k) + "_closes_at" }
