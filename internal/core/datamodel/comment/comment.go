package comment

import "time"

type Comment struct {
	ID         string    `gorm:"primaryKey"`
	RequestID  string    `gorm:"column:request_id;not null;index"`
	AuthorID   *string   `gorm:"column:author_id"`
	AuthorName string    `gorm:"column:author_name;not null"`
	Content    string    `gorm:"column:content;not null"`
	IsSystem   bool      `gorm:"column:is_system;not null;default:false"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Comment) TableName() string {
	return "comments"
}
