package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserRole represents the institutional roles carried in access tokens.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleSecretary UserRole = "SECRETARIA"
	RoleBedel     UserRole = "BEDEL"
	RoleTeacher   UserRole = "DOCENTE"
	RoleStudent   UserRole = "ESTUDIANTE"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	Email     string   `json:"email"`
	StudentID string   `json:"student_id,omitempty"`
	jwt.RegisteredClaims
}

// Capability is a single permission the engine checks before mutating the academic record.
type Capability string

const (
	CapActForAnyStudent      Capability = "students:any"
	CapViewRecord            Capability = "records:view"
	CapEnroll                Capability = "enrollments:create"
	CapCancelEnrollment      Capability = "enrollments:cancel"
	CapExamSignup            Capability = "mesas:signup"
	CapRecordExamResult      Capability = "mesas:grade"
	CapCloseExamSheet        Capability = "mesas:close"
	CapRecordRegularity      Capability = "regularities:write"
	CapLockSheets            Capability = "planillas:lock"
	CapRegisterEquivalency   Capability = "equivalencies:create"
	CapManageRoster          Capability = "commissions:manage"
	CapManageCorrelativities Capability = "correlativities:manage"
	CapManageWindows         Capability = "windows:manage"
)

// CapabilitySet is an immutable-by-convention set of capabilities.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from the provided capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Has reports whether c is part of the set.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

var roleCapabilities = map[UserRole][]Capability{
	RoleAdmin: {
		CapActForAnyStudent, CapViewRecord, CapEnroll, CapCancelEnrollment, CapExamSignup,
		CapRecordExamResult, CapCloseExamSheet, CapRecordRegularity, CapLockSheets,
		CapRegisterEquivalency, CapManageRoster, CapManageCorrelativities, CapManageWindows,
	},
	RoleSecretary: {
		CapActForAnyStudent, CapViewRecord, CapEnroll, CapCancelEnrollment, CapExamSignup,
		CapCloseExamSheet, CapLockSheets, CapRegisterEquivalency, CapManageRoster, CapManageCorrelativities,
		CapManageWindows,
	},
	RoleBedel: {
		CapActForAnyStudent, CapViewRecord, CapEnroll, CapCancelEnrollment, CapExamSignup,
		CapRecordRegularity, CapLockSheets, CapManageRoster,
	},
	RoleTeacher: {
		CapActForAnyStudent, CapViewRecord, CapRecordRegularity, CapRecordExamResult,
	},
	RoleStudent: {
		CapViewRecord, CapEnroll, CapExamSignup,
	},
}

// CapabilitiesForRole resolves the capability set granted to role.
func CapabilitiesForRole(role UserRole) CapabilitySet {
	return NewCapabilitySet(roleCapabilities[role]...)
}

// Principal is the acting user resolved once per request.
type Principal struct {
	UserID       string
	Role         UserRole
	StudentID    string
	Capabilities CapabilitySet
}

// PrincipalFromClaims resolves the principal and its capabilities from verified claims.
func PrincipalFromClaims(claims *JWTClaims) *Principal {
	if claims == nil {
		return nil
	}
	return &Principal{
		UserID:       claims.UserID,
		Role:         claims.Role,
		StudentID:    claims.StudentID,
		Capabilities: CapabilitiesForRole(claims.Role),
	}
}

// Can reports whether the principal holds c.
func (p *Principal) Can(c Capability) bool {
	return p != nil && p.Capabilities.Has(c)
}

// CanActFor reports whether the principal may operate on the given student's record.
func (p *Principal) CanActFor(studentID string) bool {
	if p == nil {
		return false
	}
	if p.Can(CapActForAnyStudent) {
		return true
	}
	return p.StudentID != "" && p.StudentID == studentID
}
