package domain_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fjglira/tfs-testcase-exporter/internal/domain"
)

var _ = Describe("ExportError", func() {
	DescribeTable("Error",
		func(err *domain.ExportError, want string) {
			Expect(err.Error()).To(Equal(want))
		},
		Entry("file and line",
			domain.NewError("source", "ids.txt", 3, "invalid work item id \"x\"", nil),
			`[source] ids.txt:3: invalid work item id "x"`),
		Entry("work item with cause",
			domain.NewItemError("fetch", 42, "request failed", domain.ErrTransport),
			"[fetch] work item 42: request failed: transport error"),
		Entry("suggestion",
			domain.NewErrorWithSuggestion("write", "out", 0, "failed to create output directory", "check permissions", nil),
			"[write] out: failed to create output directory (hint: check permissions)"),
	)

	It("should unwrap to its cause", func() {
		err := fmt.Errorf("shared steps 7: %w", domain.NewItemError("fetch", 7, "missing", domain.ErrNotFound))
		Expect(errors.Is(err, domain.ErrNotFound)).To(BeTrue())

		var exportErr *domain.ExportError
		Expect(errors.As(err, &exportErr)).To(BeTrue())
		Expect(exportErr.WorkItemID).To(Equal(7))
	})
})

var _ = Describe("Partition", func() {
	It("should split results and keep input order", func() {
		failure := errors.New("boom")
		results := []domain.Result{
			{ID: 1, TestCase: &domain.TestCase{ID: 1}},
			{ID: 2, Err: failure},
			{ID: 3, TestCase: &domain.TestCase{ID: 3}},
			{ID: 4},
		}

		cases, failed := domain.Partition(results)
		Expect(cases).To(Equal([]domain.TestCase{{ID: 1}, {ID: 3}}))
		Expect(failed).To(HaveLen(2))
		Expect(failed[0].ID).To(Equal(2))
		Expect(failed[1].ID).To(Equal(4))
	})

	It("should return an empty, non-nil slice when everything failed", func() {
		cases, _ := domain.Partition([]domain.Result{{ID: 1, Err: errors.New("x")}})
		Expect(cases).ToNot(BeNil())
		Expect(cases).To(BeEmpty())
	})
})

var _ = Describe("WorkItem", func() {
	It("should return the steps field", func() {
		item := domain.WorkItem{Fields: map[string]string{domain.FieldSteps: "<steps/>"}}
		Expect(item.StepsXML()).To(Equal("<steps/>"))
	})

	It("should return empty steps without fields", func() {
		Expect((&domain.WorkItem{}).StepsXML()).To(BeEmpty())
	})
})
