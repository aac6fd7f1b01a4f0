package organization

import "time"

type Organization struct {
	ID        string    `gorm:"primaryKey"`
	Name      string    `gorm:"column:name;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Organization) TableName() string {
	return "organizations"
}

type Department struct {
	ID             string    `gorm:"primaryKey"`
	OrganizationID string    `gorm:"column:organization_id;not null;uniqueIndex:idx_departments_org_name"`
	Name           string    `gorm:"column:name;not null;uniqueIndex:idx_departments_org_name"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Department) TableName() string {
	return "departments"
}
