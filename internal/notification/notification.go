package notification

import (
	"fmt"
	"time"

	notificationDatamodel "github.com/frahmantamala/audit-workflow/internal/core/datamodel/notification"
	"github.com/frahmantamala/audit-workflow/internal/request"
)

const titlePreviewLength = 20

type Notification struct {
	ID        string
	UserID    string
	Title     string
	Content   string
	RequestID *string
	IsRead    bool
	CreatedAt time.Time
}

func (n *Notification) ToDataModel() *notificationDatamodel.Notification {
	return &notificationDatamodel.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Content:   n.Content,
		RequestID: n.RequestID,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func FromDataModel(dm *notificationDatamodel.Notification) *Notification {
	return &Notification{
		ID:        dm.ID,
		UserID:    dm.UserID,
		Title:     dm.Title,
		Content:   dm.Content,
		RequestID: dm.RequestID,
		IsRead:    dm.IsRead,
		CreatedAt: dm.CreatedAt,
	}
}

// ReviewerMessage is what admins and department managers receive when a
// request is created or resubmitted.
func ReviewerMessage(r request.Request, action request.SubmitAction) (title, content string) {
	verb := "New"
	if action == request.ActionResubmitted {
		verb = "Updated"
	}
	preview := []rune(r.Title)
	if len(preview) > titlePreviewLength {
		preview = preview[:titlePreviewLength]
	}
	title = fmt.Sprintf("Request %s: %s...", verb, string(preview))
	content = fmt.Sprintf("%s has %s a request in %s.", r.EmployeeName, action, r.Department)
	return title, content
}

// OwnerMessage is what the request owner receives after a status change.
func OwnerMessage(r request.Request) (title, content string) {
	switch r.Status {
	case request.StatusChangesRequested:
		title = "Request Update Required"
	case request.StatusApproved:
		title = "Request Approved"
	default:
		title = "Request Rejected"
	}
	content = fmt.Sprintf("Your request \"%s\" has been %s.", r.Title, r.Status.Label())
	return title, content
}
