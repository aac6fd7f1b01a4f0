package dashboard_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/audit-workflow/internal/core/identity"
	"github.com/frahmantamala/audit-workflow/internal/dashboard"
	"github.com/frahmantamala/audit-workflow/internal/request"
	"github.com/frahmantamala/audit-workflow/pkg/logger"
)

func at(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

func row(status request.Status, amount string, created, updated time.Time) dashboard.Row {
	return dashboard.Row{
		Status:      string(status),
		TotalAmount: decimal.RequireFromString(amount),
		CreatedAt:   created,
		UpdatedAt:   updated,
	}
}

type capturingRepo struct {
	rows []dashboard.Row
	seen request.Visibility
}

func (c *capturingRepo) Rows(_ context.Context, v request.Visibility) ([]dashboard.Row, error) {
	c.seen = v
	return c.rows, nil
}

var _ = Describe("Dashboard statistics", func() {
	now := at(2024, time.June, 15, 10)
	rows := []dashboard.Row{
		row(request.StatusPending, "100.00", at(2024, time.June, 15, 9), at(2024, time.June, 15, 9)),
		row(request.StatusChangesRequested, "50.50", at(2024, time.June, 10, 8), at(2024, time.June, 12, 8)),
		row(request.StatusApproved, "200.00", at(2024, time.May, 20, 8), at(2024, time.June, 2, 8)),
		row(request.StatusRejected, "75.00", at(2024, time.April, 1, 8), at(2024, time.May, 31, 8)),
		row(request.StatusApproved, "30.00", at(2022, time.March, 1, 8), at(2022, time.March, 5, 8)),
	}

	It("counts statuses and the month-to-date figures", func() {
		stats := dashboard.Compute(rows, now)

		Expect(stats.Total).To(Equal(int64(5)))
		Expect(stats.Counts[request.StatusPending]).To(Equal(int64(1)))
		Expect(stats.Counts[request.StatusChangesRequested]).To(Equal(int64(1)))
		Expect(stats.Counts[request.StatusApproved]).To(Equal(int64(2)))
		Expect(stats.Counts[request.StatusRejected]).To(Equal(int64(1)))
		Expect(stats.Counts).To(HaveKeyWithValue(request.StatusDraft, int64(0)))
		Expect(stats.Active).To(Equal(int64(2)))
		Expect(stats.CompletedMTD).To(Equal(int64(1)))
		Expect(stats.ActiveAmount).To(Equal("150.50"))
		Expect(stats.ApprovedAmountMTD).To(Equal("200.00"))
	})

	It("buckets creation dates into daily, monthly and yearly trends", func() {
		trends := dashboard.Compute(rows, now).Trends

		Expect(trends.Daily).To(HaveLen(7))
		Expect(trends.Daily[0].Label).To(Equal("Sun"))
		Expect(trends.Daily[6].Label).To(Equal("Sat"))
		counts := []int64{}
		for _, b := range trends.Daily {
			counts = append(counts, b.Count)
		}
		Expect(counts).To(Equal([]int64{0, 1, 0, 0, 0, 0, 1}))

		Expect(trends.Monthly).To(HaveLen(12))
		Expect(trends.Monthly[0].Label).To(Equal("Jul 2023"))
		Expect(trends.Monthly[9].Count).To(Equal(int64(1)))
		Expect(trends.Monthly[10].Count).To(Equal(int64(1)))
		Expect(trends.Monthly[11].Count).To(Equal(int64(2)))

		Expect(trends.Yearly).To(HaveLen(3))
		Expect(trends.Yearly[0].Label).To(Equal("2022"))
		Expect(trends.Yearly[0].Count).To(Equal(int64(1)))
		Expect(trends.Yearly[1].Count).To(Equal(int64(0)))
		Expect(trends.Yearly[2].Count).To(Equal(int64(4)))
	})

	It("renders zero amounts for an empty set", func() {
		stats := dashboard.Compute(nil, now)
		Expect(stats.Total).To(BeZero())
		Expect(stats.ActiveAmount).To(Equal("0.00"))
		Expect(stats.ApprovedAmountMTD).To(Equal("0.00"))
	})

	It("asks the repository for the actor's visible set", func() {
		repo := &capturingRepo{rows: rows}
		svc := dashboard.NewService(repo, logger.Discard())
		manager := identity.AuthContext{
			ProfileID: "mgr-1", Role: identity.RoleManager, Department: "Engineering",
			OrganizationID: "org-1", Status: identity.StatusActive,
		}

		stats, err := svc.Stats(context.Background(), manager, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Total).To(Equal(int64(5)))
		Expect(repo.seen).To(Equal(request.Visibility{OrganizationID: "org-1", Department: "Engineering", EmployeeID: "mgr-1"}))
	})
})
