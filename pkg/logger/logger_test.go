package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/audit-workflow/pkg/logger"
)

var _ = Describe("Logger", func() {
	Describe("ParseLevel", func() {
		DescribeTable("maps names to slog levels",
			func(input string, expected slog.Level) {
				Expect(logger.ParseLevel(input)).To(Equal(expected))
			},
			Entry("debug", "debug", slog.LevelDebug),
			Entry("warn with spaces", " WARN ", slog.LevelWarn),
			Entry("error", "error", slog.LevelError),
			Entry("unknown falls back to info", "verbose", slog.LevelInfo),
		)
	})

	Describe("New", func() {
		It("writes JSON records when format is json", func() {
			var buf bytes.Buffer
			lg := logger.New(&buf, "info", "json")

			lg.Info("request approved", "request_id", "r-1")

			var record map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
			Expect(record["msg"]).To(Equal("request approved"))
			Expect(record["request_id"]).To(Equal("r-1"))
		})

		It("drops records below the configured level", func() {
			var buf bytes.Buffer
			lg := logger.New(&buf, "warn", "text")

			lg.Info("ignored")
			Expect(buf.Len()).To(BeZero())
		})
	})

	Describe("context helpers", func() {
		It("carries fields through the context", func() {
			var buf bytes.Buffer
			base := logger.New(&buf, "debug", "json")
			logger.SetDefault(base)
			DeferCleanup(func() { logger.Init("development") })

			ctx := logger.With(context.Background(), "trace_id", "abc")
			logger.From(ctx).Info("hello")

			Expect(buf.String()).To(ContainSubstring(`"trace_id":"abc"`))
		})
	})
})
