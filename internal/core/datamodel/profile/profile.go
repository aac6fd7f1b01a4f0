package profile

import "time"

type Profile struct {
	ID             string    `gorm:"primaryKey"`
	OrganizationID string    `gorm:"column:organization_id;not null;index"`
	Email          string    `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash   string    `gorm:"column:password_hash;not null"`
	FullName       string    `gorm:"column:full_name;not null"`
	Department     *string   `gorm:"column:department"`
	Role           string    `gorm:"column:role;not null;default:employee"`
	Status         string    `gorm:"column:status;not null;default:active"`
	AvatarURL      *string   `gorm:"column:avatar_url"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Profile) TableName() string {
	return "profiles"
}

type PasswordReset struct {
	ID        string     `gorm:"primaryKey"`
	ProfileID string     `gorm:"column:profile_id;not null;index"`
	TokenHash string     `gorm:"column:token_hash;uniqueIndex;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (PasswordReset) TableName() string {
	return "password_resets"
}
