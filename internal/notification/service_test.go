package notification_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
	"github.com/frahmantamala/audit-workflow/internal/notification"
	notificationPostgres "github.com/frahmantamala/audit-workflow/internal/notification/postgres"
)

var _ = Describe("Notification Service", func() {
	var (
		ctx     context.Context
		repo    notification.Repository
		service *notification.Service
		eve     identity.AuthContext
		adam    identity.AuthContext
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = notificationPostgres.NewNotificationRepository(openDB())
		service = notification.NewService(repo, testLogger)
		eve = identity.AuthContext{ProfileID: "emp-1", Role: identity.RoleEmployee, OrganizationID: "org-1"}
		adam = identity.AuthContext{ProfileID: "adm-1", Role: identity.RoleAdmin, OrganizationID: "org-1"}

		base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
		Expect(repo.CreateBatch(ctx, []*notification.Notification{
			{ID: "n-1", UserID: "emp-1", Title: "Request Approved", Content: "first", CreatedAt: base},
			{ID: "n-2", UserID: "emp-1", Title: "Request Rejected", Content: "second", CreatedAt: base.Add(time.Minute)},
			{ID: "n-3", UserID: "adm-1", Title: "Request New: x...", Content: "other", CreatedAt: base},
		})).To(Succeed())
	})

	It("lists the caller's notifications newest first", func() {
		ns, err := service.List(ctx, eve, false, 20, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(ns).To(HaveLen(2))
		Expect(ns[0].ID).To(Equal("n-2"))
		Expect(ns[1].ID).To(Equal("n-1"))
	})

	It("marks one read idempotently and tracks the unread count", func() {
		Expect(service.MarkRead(ctx, eve, "n-1")).To(Succeed())
		Expect(service.MarkRead(ctx, eve, "n-1")).To(Succeed())

		count, err := service.UnreadCount(ctx, eve)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(int64(1)))

		unread, err := service.List(ctx, eve, true, 20, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(unread).To(HaveLen(1))
		Expect(unread[0].ID).To(Equal("n-2"))
	})

	It("treats other users' notifications as missing", func() {
		Expect(errors.Is(service.MarkRead(ctx, eve, "n-3"), internal.ErrNotificationNotFound)).To(BeTrue())
		Expect(errors.Is(service.Delete(ctx, eve, "n-3"), internal.ErrNotificationNotFound)).To(BeTrue())

		count, err := service.UnreadCount(ctx, adam)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(int64(1)))
	})

	It("marks all read and clears only the caller's inbox", func() {
		n, err := service.MarkAllRead(ctx, eve)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(2)))

		Expect(service.Delete(ctx, eve, "n-1")).To(Succeed())
		cleared, err := service.Clear(ctx, eve)
		Expect(err).NotTo(HaveOccurred())
		Expect(cleared).To(Equal(int64(1)))

		remaining, err := service.List(ctx, adam, false, 20, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(remaining).To(HaveLen(1))
	})
})
