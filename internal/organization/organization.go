package organization

import (
	"time"

	organizationDatamodel "github.com/frahmantamala/audit-workflow/internal/core/datamodel/organization"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
)

// DefaultDepartments are created with every new organization.
var DefaultDepartments = []string{
	"Engineering",
	"Finance & Accounting",
	"Human Resources",
	"Operations",
	"Sales & Marketing",
	"IT Support",
	identity.GeneralDepartment,
}

const maxDepartmentNameLength = 100

type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type Department struct {
	ID             string
	OrganizationID string
	Name           string
	CreatedAt      time.Time
}

func (o *Organization) ToDataModel() *organizationDatamodel.Organization {
	return &organizationDatamodel.Organization{
		ID:        o.ID,
		Name:      o.Name,
		CreatedAt: o.CreatedAt,
	}
}

func OrganizationFromDataModel(dm *organizationDatamodel.Organization) *Organization {
	return &Organization{
		ID:        dm.ID,
		Name:      dm.Name,
		CreatedAt: dm.CreatedAt,
	}
}

func (d *Department) ToDataModel() *organizationDatamodel.Department {
	return &organizationDatamodel.Department{
		ID:             d.ID,
		OrganizationID: d.OrganizationID,
		Name:           d.Name,
		CreatedAt:      d.CreatedAt,
	}
}

func DepartmentFromDataModel(dm *organizationDatamodel.Department) *Department {
	return &Department{
		ID:             dm.ID,
		OrganizationID: dm.OrganizationID,
		Name:           dm.Name,
		CreatedAt:      dm.CreatedAt,
	}
}
