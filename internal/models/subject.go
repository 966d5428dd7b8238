package models

import "time"

// Career is a degree program offered by the institution.
type Career struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Plan is a curriculum plan of a career, identified by its approving resolution.
type Plan struct {
	ID         string `db:"id" json:"id"`
	CareerID   string `db:"career_id" json:"career_id"`
	Resolution string `db:"resolution" json:"resolution"`
	Active     bool   `db:"active" json:"active"`
}

// SubjectCadence is how a subject is dictated along the academic year.
type SubjectCadence string

const (
	CadenceAnnual         SubjectCadence = "ANNUAL"
	CadenceFirstSemester  SubjectCadence = "FIRST_SEMESTER"
	CadenceSecondSemester SubjectCadence = "SECOND_SEMESTER"
)

// SubjectFormat is the pedagogical classification of a subject.
type SubjectFormat string

const (
	FormatSubject  SubjectFormat = "ASIGNATURA"
	FormatWorkshop SubjectFormat = "TALLER"
	FormatSeminar  SubjectFormat = "SEMINARIO"
	FormatModule   SubjectFormat = "MODULO"
	FormatPractice SubjectFormat = "PRACTICA"
)

// Subject belongs to exactly one plan.
type Subject struct {
	ID        string         `db:"id" json:"id"`
	PlanID    string         `db:"plan_id" json:"plan_id"`
	Name      string         `db:"name" json:"name"`
	Year      int            `db:"year" json:"year"`
	Cadence   SubjectCadence `db:"cadence" json:"cadence"`
	Format    SubjectFormat  `db:"format" json:"format"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
