// Package identity holds the actor model shared by every lifecycle operation.
package identity

import (
	"context"
	"strings"
)

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return r, true
	}
	return "", false
}

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusActive, StatusSuspended:
		return st, true
	}
	return "", false
}

// GeneralDepartment is assigned to admins that sign up without a department.
const GeneralDepartment = "General"

// AuthContext is the authenticated actor. It is built once per request by the
// auth middleware and passed explicitly to every service call.
type AuthContext struct {
	ProfileID      string
	FullName       string
	Email          string
	Role           Role
	Department     string
	OrganizationID string
	Status         Status
}

func (a AuthContext) IsAdmin() bool     { return a.Role == RoleAdmin }
func (a AuthContext) IsManager() bool   { return a.Role == RoleManager }
func (a AuthContext) IsSuspended() bool { return a.Status == StatusSuspended }

// HasDepartment reports whether the actor has picked a department.
func (a AuthContext) HasDepartment() bool {
	return strings.TrimSpace(a.Department) != ""
}

// NeedsDepartment is true for non-admins that must finish profile setup.
func (a AuthContext) NeedsDepartment() bool {
	return !a.IsAdmin() && !a.HasDepartment()
}

type ctxKey string

const authContextKey ctxKey = "auth_context"

func WithContext(ctx context.Context, actor AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, actor)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	if ctx == nil {
		return AuthContext{}, false
	}
	actor, ok := ctx.Value(authContextKey).(AuthContext)
	return actor, ok
}
