package postgres

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/audit-workflow/internal/core/database"
	"github.com/frahmantamala/audit-workflow/internal/dashboard"
	"github.com/frahmantamala/audit-workflow/internal/request"
)

type DashboardRepository struct {
	db *sqlx.DB
}

func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

func (r *DashboardRepository) Rows(ctx context.Context, v request.Visibility) ([]dashboard.Row, error) {
	where := []string{"organization_id = ?"}
	args := []interface{}{v.OrganizationID}

	if !v.AllInOrganization {
		if v.Department != "" {
			where = append(where, "(department = ? OR employee_id = ?)")
			args = append(args, v.Department, v.EmployeeID)
		} else {
			where = append(where, "employee_id = ?")
			args = append(args, v.EmployeeID)
		}
	}

	query := r.db.Rebind(`
SELECT status, total_amount, created_at, updated_at
FROM requests
WHERE ` + strings.Join(where, " AND "))

	var rows []dashboard.Row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, database.MapError(err)
	}
	return rows, nil
}
