package organization

import (
	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/common/validation"
)

type CreateDepartmentDTO struct {
	Name string `json:"name"`
}

func (dto CreateDepartmentDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(maxDepartmentNameLength)
	return v.Validate()
}

type DepartmentResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type DepartmentsResponse struct {
	Departments []DepartmentResponse `json:"departments"`
}

func ToDepartmentsResponse(ds []*Department) DepartmentsResponse {
	out := make([]DepartmentResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, DepartmentResponse{ID: d.ID, Name: d.Name})
	}
	return DepartmentsResponse{Departments: out}
}
