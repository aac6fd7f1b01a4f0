package comment

import (
	"time"

	commentDatamodel "github.com/frahmantamala/audit-workflow/internal/core/datamodel/comment"
)

const SystemAuthorName = "System"

const maxContentLength = 2000

// Comment is one entry of a request's thread. A nil AuthorID marks a
// system line written by the lifecycle engine.
type Comment struct {
	ID         string
	RequestID  string
	AuthorID   *string
	AuthorName string
	Content    string
	IsSystem   bool
	CreatedAt  time.Time
}

func (c *Comment) ToDataModel() *commentDatamodel.Comment {
	return &commentDatamodel.Comment{
		ID:         c.ID,
		RequestID:  c.RequestID,
		AuthorID:   c.AuthorID,
		AuthorName: c.AuthorName,
		Content:    c.Content,
		IsSystem:   c.IsSystem,
		CreatedAt:  c.CreatedAt,
	}
}

func FromDataModel(dm *commentDatamodel.Comment) *Comment {
	return &Comment{
		ID:         dm.ID,
		RequestID:  dm.RequestID,
		AuthorID:   dm.AuthorID,
		AuthorName: dm.AuthorName,
		Content:    dm.Content,
		IsSystem:   dm.IsSystem,
		CreatedAt:  dm.CreatedAt,
	}
}
