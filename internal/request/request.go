package request

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	requestDatamodel "github.com/frahmantamala/audit-workflow/internal/core/datamodel/request"
	"github.com/frahmantamala/audit-workflow/internal/core/events"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
)

type Status string

const (
	StatusDraft            Status = "draft"
	StatusPending          Status = "pending"
	StatusInReview         Status = "in_review"
	StatusChangesRequested Status = "changes_requested"
	StatusApproved         Status = "approved"
	StatusRejected         Status = "rejected"
)

var AllStatuses = []Status{
	StatusDraft,
	StatusPending,
	StatusInReview,
	StatusChangesRequested,
	StatusApproved,
	StatusRejected,
}

// ActiveStatuses make up the review queue; ArchivedStatuses the archive.
var (
	ActiveStatuses   = []Status{StatusPending, StatusChangesRequested}
	ArchivedStatuses = []Status{StatusApproved, StatusRejected}
)

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllStatuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusChangesRequested
}

func (s Status) IsArchived() bool {
	return s == StatusApproved || s == StatusRejected
}

// Label is the status as shown to people, e.g. "changes requested".
func (s Status) Label() string {
	return strings.Replace(string(s), "_", " ", 1)
}

type Category string

const (
	CategoryExpense  Category = "expense"
	CategoryTravel   Category = "travel"
	CategoryPurchase Category = "purchase"
	CategoryOther    Category = "other"
)

var categoryLabels = map[Category]string{
	CategoryExpense:  "Expense Claim",
	CategoryTravel:   "Travel Reimbursement",
	CategoryPurchase: "Purchase Requisition",
	CategoryOther:    "Other",
}

func CategoryNames() []string {
	return []string{string(CategoryExpense), string(CategoryTravel), string(CategoryPurchase), string(CategoryOther)}
}

func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

type Request struct {
	ID                  string
	OrganizationID      string
	EmployeeID          string
	EmployeeName        string
	Department          string
	Title               string
	Category            Category
	CustomCategory      string
	Description         string
	TotalAmount         decimal.Decimal
	AuditDate           time.Time
	Status              Status
	AICompletenessScore int
	AISummary           string
	AIFeedback          []string
	Attachments         []string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// transitions lists every reachable target per source status.
var transitions = map[Status][]Status{
	StatusPending:          {StatusApproved, StatusRejected, StatusChangesRequested},
	StatusChangesRequested: {StatusPending},
	StatusApproved:         {StatusChangesRequested},
	StatusRejected:         {StatusChangesRequested},
}

func IsReachable(from, to Status) bool {
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// CanView: admins see everything in their organization, managers see their
// department, everyone sees what they own.
func CanView(actor identity.AuthContext, r *Request) bool {
	if r == nil || actor.ProfileID == "" {
		return false
	}
	if actor.OrganizationID != r.OrganizationID {
		return false
	}
	switch {
	case actor.Role == identity.RoleAdmin:
		return true
	case actor.Role == identity.RoleManager && actor.HasDepartment() && actor.Department == r.Department:
		return true
	}
	return actor.ProfileID == r.EmployeeID
}

// CanViewSnapshot applies CanView to the request view carried on events.
func CanViewSnapshot(actor identity.AuthContext, s events.RequestSnapshot) bool {
	return CanView(actor, &Request{
		ID:             s.RequestID,
		OrganizationID: s.OrganizationID,
		EmployeeID:     s.EmployeeID,
		Department:     s.Department,
		Status:         Status(s.Status),
	})
}

func CanTransition(actor identity.AuthContext, r *Request, to Status) bool {
	if !CanView(actor, r) || !IsReachable(r.Status, to) {
		return false
	}

	if actor.Role == identity.RoleEmployee {
		return to == StatusPending && r.Status == StatusChangesRequested && actor.ProfileID == r.EmployeeID
	}

	switch r.Status {
	case StatusPending:
		return actor.Role == identity.RoleAdmin ||
			(actor.Role == identity.RoleManager && actor.Department == r.Department)
	case StatusChangesRequested:
		return actor.ProfileID == r.EmployeeID
	case StatusApproved, StatusRejected:
		return actor.Role == identity.RoleAdmin
	}
	return false
}

// Snapshot is the visibility-relevant view of the request carried on events.
func (r *Request) Snapshot() events.RequestSnapshot {
	return events.RequestSnapshot{
		RequestID:      r.ID,
		OrganizationID: r.OrganizationID,
		EmployeeID:     r.EmployeeID,
		Department:     r.Department,
		Status:         string(r.Status),
	}
}

func (r *Request) CategoryLabel() string {
	if r.Category == CategoryOther && r.CustomCategory != "" {
		return r.CustomCategory
	}
	return r.Category.Label()
}

func (r *Request) ToDataModel() *requestDatamodel.Request {
	return &requestDatamodel.Request{
		ID:                  r.ID,
		OrganizationID:      r.OrganizationID,
		EmployeeID:          r.EmployeeID,
		EmployeeName:        r.EmployeeName,
		Department:          r.Department,
		Title:               r.Title,
		Category:            string(r.Category),
		CustomCategory:      r.CustomCategory,
		Description:         r.Description,
		TotalAmount:         r.TotalAmount,
		AuditDate:           r.AuditDate,
		Status:              string(r.Status),
		AICompletenessScore: r.AICompletenessScore,
		AISummary:           r.AISummary,
		AIFeedback:          r.AIFeedback,
		Attachments:         r.Attachments,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func FromDataModel(dm *requestDatamodel.Request) *Request {
	if dm == nil {
		return nil
	}
	return &Request{
		ID:                  dm.ID,
		OrganizationID:      dm.OrganizationID,
		EmployeeID:          dm.EmployeeID,
		EmployeeName:        dm.EmployeeName,
		Department:          dm.Department,
		Title:               dm.Title,
		Category:            Category(dm.Category),
		CustomCategory:      dm.CustomCategory,
		Description:         dm.Description,
		TotalAmount:         dm.TotalAmount,
		AuditDate:           dm.AuditDate,
		Status:              Status(dm.Status),
		AICompletenessScore: dm.AICompletenessScore,
		AISummary:           dm.AISummary,
		AIFeedback:          dm.AIFeedback,
		Attachments:         dm.Attachments,
		CreatedAt:           dm.CreatedAt,
		UpdatedAt:           dm.UpdatedAt,
	}
}

func FromDataModelSlice(dms []*requestDatamodel.Request) []*Request {
	out := make([]*Request, 0, len(dms))
	for _, dm := range dms {
		out = append(out, FromDataModel(dm))
	}
	return out
}
