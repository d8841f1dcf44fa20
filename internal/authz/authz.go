// Package authz decides whether a principal may perform an action on a resource.
// Decisions come from a static policy table and never depend on request state.
package authz

import (
	"fmt"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
)

// Action is a verb checked by the policy.
type Action string

const (
	ActionRead      Action = "read"
	ActionCreate    Action = "create"
	ActionUpdate    Action = "update"
	ActionDelete    Action = "delete"
	ActionApprove   Action = "approve"
	ActionActivate  Action = "activate"
	ActionArchive   Action = "archive"
	ActionExport    Action = "export"
	ActionBroadcast Action = "broadcast"
)

// Resource is an entity family.
type Resource string

const (
	ResourceStudents      Resource = "students"
	ResourceReference     Resource = "reference"
	ResourcePeriods       Resource = "periods"
	ResourceScores        Resource = "scores"
	ResourceMemorization  Resource = "memorization"
	ResourceAttendance    Resource = "attendance"
	ResourceReports       Resource = "reports"
	ResourceBudgets       Resource = "budgets"
	ResourceRealizations  Resource = "realizations"
	ResourceViolations    Resource = "violations"
	ResourceAnnouncements Resource = "announcements"
	ResourceAudit         Resource = "audit"
	ResourceExports       Resource = "exports"
	ResourceBroadcasts    Resource = "broadcasts"
)

// Principal is the caller being checked.
type Principal struct {
	ID   string
	Role models.UserRole
	// StudentIDs limits WALI principals to their own children.
	StudentIDs []string
}

// PrincipalFromClaims converts verified token claims.
func PrincipalFromClaims(claims *models.JWTClaims) Principal {
	if claims == nil {
		return Principal{}
	}
	return Principal{ID: claims.UserID, Role: claims.Role, StudentIDs: claims.StudentIDs}
}

// Decision is the outcome of a check.
type Decision struct {
	Allowed bool
	Reason  string
}

type grant map[Resource][]Action

var (
	readOnly = []Action{ActionRead}
	crud     = []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete}
	all      = []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionApprove, ActionActivate, ActionArchive, ActionExport, ActionBroadcast}
)

var policy = map[models.UserRole]grant{
	models.RoleKepala: {
		ResourceStudents:      readOnly,
		ResourceReference:     readOnly,
		ResourcePeriods:       {ActionRead, ActionActivate},
		ResourceScores:        readOnly,
		ResourceMemorization:  readOnly,
		ResourceAttendance:    readOnly,
		ResourceReports:       readOnly,
		ResourceBudgets:       {ActionRead, ActionApprove},
		ResourceRealizations:  readOnly,
		ResourceViolations:    {ActionRead, ActionUpdate},
		ResourceAnnouncements: {ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionArchive},
		ResourceAudit:         readOnly,
		ResourceExports:       {ActionExport},
		ResourceBroadcasts:    {ActionRead, ActionBroadcast},
	},
	models.RoleBendahara: {
		ResourceStudents:      readOnly,
		ResourceReference:     readOnly,
		ResourcePeriods:       readOnly,
		ResourceBudgets:       {ActionRead, ActionCreate, ActionUpdate, ActionDelete},
		ResourceRealizations:  {ActionRead, ActionCreate},
		ResourceAnnouncements: readOnly,
		ResourceExports:       {ActionExport},
	},
	models.RoleUstadz: {
		ResourceStudents:      readOnly,
		ResourceReference:     readOnly,
		ResourcePeriods:       readOnly,
		ResourceScores:        crud,
		ResourceMemorization:  crud,
		ResourceAttendance:    crud,
		ResourceReports:       readOnly,
		ResourceViolations:    crud,
		ResourceAnnouncements: readOnly,
		ResourceExports:       {ActionExport},
		ResourceBroadcasts:    {ActionRead, ActionBroadcast},
	},
	models.RoleWali: {
		ResourceStudents:      readOnly,
		ResourceScores:        readOnly,
		ResourceMemorization:  readOnly,
		ResourceAttendance:    readOnly,
		ResourceReports:       readOnly,
		ResourceAnnouncements: readOnly,
	},
}

// Authorize checks action on resource for p. ADMIN may do everything.
func Authorize(p Principal, action Action, resource Resource) Decision {
	if p.ID == "" || !p.Role.Valid() {
		return Decision{Reason: "unauthenticated principal"}
	}
	if p.Role == models.RoleAdmin {
		return Decision{Allowed: true}
	}
	for _, allowed := range policy[p.Role][resource] {
		if allowed == action {
			return Decision{Allowed: true}
		}
	}
	return Decision{Reason: fmt.Sprintf("role %s may not %s %s", p.Role, action, resource)}
}

// AuthorizeStudent narrows a granted read to the students a WALI principal guards.
// Other roles are not scoped per student.
func AuthorizeStudent(p Principal, studentID string) Decision {
	if p.Role != models.RoleWali {
		return Decision{Allowed: true}
	}
	for _, id := range p.StudentIDs {
		if id == studentID {
			return Decision{Allowed: true}
		}
	}
	return Decision{Reason: "student is not linked to this guardian"}
}

// Capabilities lists the actions p holds on each resource, for clients that hide controls.
func Capabilities(p Principal) map[Resource][]Action {
	out := make(map[Resource][]Action)
	if p.Role == models.RoleAdmin {
		for _, r := range []Resource{
			ResourceStudents, ResourceReference, ResourcePeriods, ResourceScores, ResourceMemorization,
			ResourceAttendance, ResourceReports, ResourceBudgets, ResourceRealizations, ResourceViolations,
			ResourceAnnouncements, ResourceAudit, ResourceExports, ResourceBroadcasts,
		} {
			out[r] = append([]Action(nil), all...)
		}
		return out
	}
	for r, actions := range policy[p.Role] {
		out[r] = append([]Action(nil), actions...)
	}
	return out
}
