package models

import "time"

// MesaType distinguishes ordinary and extraordinary exam sittings.
type MesaType string

const (
	MesaTypeFinal         MesaType = "FINAL"
	MesaTypeExtraordinary MesaType = "EXTRAORDINARIA"
)

// MesaModality decides which eligibility path a sign-up follows.
type MesaModality string

const (
	ModalityRegular MesaModality = "REGULAR"
	ModalityFree    MesaModality = "LIBRE"
)

// Mesa is a scheduled final-exam sitting for a subject.
type Mesa struct {
	ID              string       `db:"id" json:"id"`
	SubjectID       string       `db:"subject_id" json:"subject_id"`
	Type            MesaType     `db:"type" json:"type"`
	Modality        MesaModality `db:"modality" json:"modality"`
	Date            time.Time    `db:"date" json:"date"`
	PresidentID     *string      `db:"president_id" json:"president_id,omitempty"`
	GradingClosedAt *time.Time   `db:"planilla_cerrada_en" json:"planilla_cerrada_en,omitempty"`
}

// SignupCondition is the result condition of an exam sign-up.
type SignupCondition string

const (
	ConditionPending         SignupCondition = "PENDIENTE"
	ConditionApproved        SignupCondition = "APROBADO"
	ConditionFailed          SignupCondition = "DESAPROBADO"
	ConditionAbsent          SignupCondition = "AUSENTE"
	ConditionJustifiedAbsent SignupCondition = "AUSENTE_JUSTIFICADO"
)

// Terminal reports whether the condition is a final outcome.
func (c SignupCondition) Terminal() bool {
	switch c {
	case ConditionApproved, ConditionFailed, ConditionAbsent, ConditionJustifiedAbsent:
		return true
	}
	return false
}

// MesaSignup is a student's registration to sit a mesa.
type MesaSignup struct {
	ID                   string          `db:"id" json:"id"`
	MesaID               string          `db:"mesa_id" json:"mesa_id"`
	StudentID            string          `db:"student_id" json:"student_id"`
	Condition            SignupCondition `db:"condition" json:"condition"`
	Score                *float64        `db:"score" json:"score,omitempty"`
	CountsTowardAttempts bool            `db:"cuenta_para_intentos" json:"cuenta_para_intentos"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}
