package models

// CorrelativityKind types a prerequisite edge by the status required on the prerequisite subject.
type CorrelativityKind string

const (
	CorrelativityRegularToEnroll CorrelativityKind = "REGULAR_TO_ENROLL"
	CorrelativityPassedToEnroll  CorrelativityKind = "PASSED_TO_ENROLL"
	CorrelativityRegularToExam   CorrelativityKind = "REGULAR_TO_EXAM"
	CorrelativityPassedToExam    CorrelativityKind = "PASSED_TO_EXAM"
)

// Purpose is the action a student attempts on the origin subject.
type Purpose string

const (
	PurposeEnroll Purpose = "ENROLL"
	PurposeExam   Purpose = "EXAM"
)

// Valid reports whether k is a known kind.
func (k CorrelativityKind) Valid() bool {
	switch k {
	case CorrelativityRegularToEnroll, CorrelativityPassedToEnroll, CorrelativityRegularToExam, CorrelativityPassedToExam:
		return true
	}
	return false
}

// Purpose returns the action guarded by edges of this kind.
func (k CorrelativityKind) Purpose() Purpose {
	if k == CorrelativityRegularToExam || k == CorrelativityPassedToExam {
		return PurposeExam
	}
	return PurposeEnroll
}

// RequiresPassed reports whether the prerequisite must be passed rather than merely regular.
func (k CorrelativityKind) RequiresPassed() bool {
	return k == CorrelativityPassedToEnroll || k == CorrelativityPassedToExam
}

// KindsFor lists the edge kinds evaluated for purpose.
func KindsFor(p Purpose) []CorrelativityKind {
	if p == PurposeExam {
		return []CorrelativityKind{CorrelativityRegularToExam, CorrelativityPassedToExam}
	}
	return []CorrelativityKind{CorrelativityRegularToEnroll, CorrelativityPassedToEnroll}
}

// Correlativity is a directed prerequisite edge: SubjectID requires RequiredSubjectID.
type Correlativity struct {
	ID                  string            `db:"id" json:"id"`
	SubjectID           string            `db:"subject_id" json:"subject_id"`
	RequiredSubjectID   string            `db:"required_subject_id" json:"required_subject_id"`
	RequiredSubjectName string            `db:"required_subject_name" json:"required_subject_name"`
	Kind                CorrelativityKind `db:"kind" json:"kind"`
}

// RequiredStatus is the status label expected on a prerequisite.
type RequiredStatus string

const (
	RequiredRegular RequiredStatus = "REGULAR"
	RequiredPassed  RequiredStatus = "APROBADA"
)

// ActualStatus describes what the student currently holds on a prerequisite.
type ActualStatus string

const (
	ActualPassed         ActualStatus = "APROBADA"
	ActualRegular        ActualStatus = "REGULAR"
	ActualExpiredRegular ActualStatus = "REGULARIDAD VENCIDA"
	ActualFree           ActualStatus = "LIBRE"
	ActualNone           ActualStatus = "SIN REGISTRO"
)

// Violation is one unmet prerequisite.
type Violation struct {
	RequiredSubjectID   string            `json:"required_subject_id"`
	RequiredSubjectName string            `json:"required_subject_name"`
	Kind                CorrelativityKind `json:"kind"`
	Expected            RequiredStatus    `json:"expected"`
	Actual              ActualStatus      `json:"actual"`
}
