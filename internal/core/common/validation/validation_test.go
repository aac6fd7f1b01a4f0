package validation_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/common/validation"
)

func fieldsOf(err *errors.AppError) []string {
	details, ok := err.Details.(errors.ValidationErrors)
	Expect(ok).To(BeTrue())
	var out []string
	for _, e := range details.Errors {
		out = append(out, e.Field)
	}
	return out
}

var _ = Describe("ValidationBuilder", func() {
	It("aggregates errors from several fields", func() {
		v := validation.NewValidator()
		v.Field("title", "   ").Required()
		v.Field("category", "gift").OneOf(errors.ErrCodeInvalidCategory, "expense", "travel")
		v.Field("audit_date", "2024-02-30").Date()

		err := v.Validate()
		Expect(err).NotTo(BeNil())
		Expect(err.Code).To(Equal(errors.ErrCodeValidationFailed))
		Expect(fieldsOf(err)).To(ConsistOf("title", "category", "audit_date"))
	})

	It("returns nil when every field passes", func() {
		v := validation.NewValidator()
		v.Field("title", "Team offsite").Required().MaxLength(200)
		v.Field("total_amount", "12.50").Required().NonNegativeDecimal(errors.ErrCodeInvalidAmount)

		Expect(v.Validate()).To(BeNil())
	})
})

var _ = Describe("ParseAmount", func() {
	It("parses decimal strings", func() {
		d, err := validation.ParseAmount(" 1500.25 ")
		Expect(err).To(BeNil())
		Expect(d.String()).To(Equal("1500.25"))
	})

	It("accepts zero", func() {
		d, err := validation.ParseAmount("0")
		Expect(err).To(BeNil())
		Expect(d.IsZero()).To(BeTrue())
	})

	It("rejects negative and non-numeric input", func() {
		_, err := validation.ParseAmount("-1")
		Expect(err).NotTo(BeNil())
		Expect(err.Error()).To(ContainSubstring("cannot be negative"))

		_, err = validation.ParseAmount("ten")
		Expect(err).NotTo(BeNil())
		Expect(err.Error()).To(ContainSubstring("must be a number"))
	})
})

var _ = Describe("ParseAuditDate", func() {
	It("parses calendar dates", func() {
		t, err := validation.ParseAuditDate("2024-03-15")
		Expect(err).To(BeNil())
		Expect(t.Day()).To(Equal(15))
	})

	It("rejects impossible dates", func() {
		_, err := validation.ParseAuditDate("2024-13-01")
		Expect(err).NotTo(BeNil())
		Expect(fieldsOf(err)).To(ConsistOf("audit_date"))
	})
})
