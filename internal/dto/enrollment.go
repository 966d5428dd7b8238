package dto

// EnrollRequest asks the enrollment gate to register a student in a commission of a subject.
type EnrollRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	SubjectID    string `json:"subject_id" validate:"required"`
	CommissionID string `json:"commission_id" validate:"required"`
}

// CreateCommissionRequest describes a new subject offering.
type CreateCommissionRequest struct {
	SubjectID    string `json:"subject_id" validate:"required"`
	AcademicYear int    `json:"academic_year" validate:"required,gte=2000,lte=2100"`
	Code         string `json:"code" validate:"required,max=20"`
	Shift        string `json:"shift" validate:"required,oneof=MANANA TARDE NOCHE"`
	Capacity     int    `json:"capacity" validate:"gte=0"`
}

// DistributeRequest moves a random share of an origin roster into a destination commission.
type DistributeRequest struct {
	DestinationCommissionID string `json:"destination_commission_id" validate:"required"`
	Percentage              int    `json:"percentage" validate:"required,gte=1,lte=100"`
}

// MoveRequest reassigns the listed enrollments to a commission.
type MoveRequest struct {
	EnrollmentIDs []string `json:"enrollment_ids" validate:"required,min=1,dive,required"`
}

// RosterMoveResult reports how many enrollments changed commission.
type RosterMoveResult struct {
	Moved int `json:"moved"`
}
