// Package dashboard summarises the requests an actor can see.
package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/audit-workflow/internal/request"
)

// Row is the slice of a request the statistics need.
type Row struct {
	Status      string          `db:"status"`
	TotalAmount decimal.Decimal `db:"total_amount"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

type Bucket struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	Count int64     `json:"count"`
}

type Trends struct {
	Daily   []Bucket `json:"daily"`
	Monthly []Bucket `json:"monthly"`
	Yearly  []Bucket `json:"yearly"`
}

type Stats struct {
	Counts            map[request.Status]int64 `json:"counts"`
	Total             int64                    `json:"total"`
	Active            int64                    `json:"active"`
	CompletedMTD      int64                    `json:"completed_mtd"`
	ActiveAmount      string                   `json:"active_amount"`
	ApprovedAmountMTD string                   `json:"approved_amount_mtd"`
	Trends            Trends                   `json:"trends"`
}

// Compute folds rows into Stats. Buckets are calendar periods in now's
// location, oldest first.
func Compute(rows []Row, now time.Time) Stats {
	stats := Stats{Counts: make(map[request.Status]int64, len(request.AllStatuses))}
	for _, st := range request.AllStatuses {
		stats.Counts[st] = 0
	}

	loc := now.Location()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	daily := make([]Bucket, 7)
	for i := range daily {
		start := today.AddDate(0, 0, i-6)
		daily[i] = Bucket{Label: start.Format("Mon"), Start: start}
	}
	monthly := make([]Bucket, 12)
	for i := range monthly {
		start := monthStart.AddDate(0, i-11, 0)
		monthly[i] = Bucket{Label: start.Format("Jan 2006"), Start: start}
	}
	yearly := make([]Bucket, 3)
	for i := range yearly {
		start := time.Date(now.Year()+i-2, time.January, 1, 0, 0, 0, 0, loc)
		yearly[i] = Bucket{Label: start.Format("2006"), Start: start}
	}

	activeAmount := decimal.Zero
	approvedMTD := decimal.Zero

	for _, row := range rows {
		st := request.Status(row.Status)
		stats.Counts[st]++
		stats.Total++

		switch st {
		case request.StatusPending, request.StatusChangesRequested:
			stats.Active++
			activeAmount = activeAmount.Add(row.TotalAmount)
		case request.StatusApproved, request.StatusRejected:
			if !row.UpdatedAt.In(loc).Before(monthStart) {
				stats.CompletedMTD++
				if st == request.StatusApproved {
					approvedMTD = approvedMTD.Add(row.TotalAmount)
				}
			}
		}

		created := row.CreatedAt.In(loc)
		countInto(daily, created, func(t time.Time) time.Time { return t.AddDate(0, 0, 1) })
		countInto(monthly, created, func(t time.Time) time.Time { return t.AddDate(0, 1, 0) })
		countInto(yearly, created, func(t time.Time) time.Time { return t.AddDate(1, 0, 0) })
	}

	stats.ActiveAmount = activeAmount.StringFixed(2)
	stats.ApprovedAmountMTD = approvedMTD.StringFixed(2)
	stats.Trends = Trends{Daily: daily, Monthly: monthly, Yearly: yearly}
	return stats
}

func countInto(buckets []Bucket, at time.Time, next func(time.Time) time.Time) {
	for i := range buckets {
		if !at.Before(buckets[i].Start) && at.Before(next(buckets[i].Start)) {
			buckets[i].Count++
			return
		}
	}
}
