package models

import "time"

// Student represents a person admitted to the institution. Students are never hard-deleted.
type Student struct {
	ID        string    `db:"id" json:"id"`
	DNI       string    `db:"dni" json:"dni"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Email     string    `db:"email" json:"email"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FullName renders "Last, First" as used on actas.
func (s Student) FullName() string {
	if s.FirstName == "" {
		return s.LastName
	}
	return s.LastName + ", " + s.FirstName
}

// CareerEnrollmentStatus is the state of a student's admission to a career.
type CareerEnrollmentStatus string

const (
	CareerEnrollmentActive    CareerEnrollmentStatus = "ACTIVE"
	CareerEnrollmentGraduated CareerEnrollmentStatus = "GRADUATED"
	CareerEnrollmentWithdrawn CareerEnrollmentStatus = "WITHDRAWN"
)

// CareerEnrollment binds a student to a career (and the plan they study under).
type CareerEnrollment struct {
	ID         string                 `db:"id" json:"id"`
	StudentID  string                 `db:"student_id" json:"student_id"`
	CareerID   string                 `db:"career_id" json:"career_id"`
	PlanID     string                 `db:"plan_id" json:"plan_id"`
	Status     CareerEnrollmentStatus `db:"status" json:"status"`
	EnrolledAt time.Time              `db:"enrolled_at" json:"enrolled_at"`
}
