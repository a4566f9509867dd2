package model

import "github.com/google/uuid"

type UserRole string

const (
	UserRoleTechnician UserRole = "technician"
	UserRoleSupervisor UserRole = "supervisor"
	UserRoleManager    UserRole = "manager"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleTechnician, UserRoleSupervisor, UserRoleManager:
		return true
	default:
		return false
	}
}

type Principal struct {
	UserID uuid.UUID
	Role   UserRole
}

func (p Principal) IsTechnician() bool {
	return p.Role == UserRoleTechnician
}

func (p Principal) IsSupervisor() bool {
	return p.Role == UserRoleSupervisor
}

func (p Principal) IsManager() bool {
	return p.Role == UserRoleManager
}

// CanSchedule reports whether the principal may create, reschedule and
// reassign jobs and review technician submissions.
func (p Principal) CanSchedule() bool {
	return p.IsSupervisor() || p.IsManager()
}
