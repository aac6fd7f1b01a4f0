package comment

import (
	"time"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/common/validation"
)

type AddCommentDTO struct {
	Content string `json:"content"`
}

func (dto AddCommentDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("content", dto.Content).Required().MaxLength(maxContentLength)
	return v.Validate()
}

type CommentResponse struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id"`
	AuthorID   *string   `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	IsSystem   bool      `json:"is_system"`
	CreatedAt  time.Time `json:"created_at"`
}

type CommentsResponse struct {
	Comments []CommentResponse `json:"comments"`
}

func ToResponse(c *Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		RequestID:  c.RequestID,
		AuthorID:   c.AuthorID,
		AuthorName: c.AuthorName,
		Content:    c.Content,
		IsSystem:   c.IsSystem,
		CreatedAt:  c.CreatedAt,
	}
}

func ToResponseSlice(cs []*Comment) CommentsResponse {
	out := make([]CommentResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, ToResponse(c))
	}
	return CommentsResponse{Comments: out}
}
