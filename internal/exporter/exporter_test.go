package exporter_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/tidwall/gjson"

	"github.com/fjglira/tfs-testcase-exporter/internal/config"
	"github.com/fjglira/tfs-testcase-exporter/internal/domain"
	"github.com/fjglira/tfs-testcase-exporter/internal/exporter"
	"github.com/fjglira/tfs-testcase-exporter/internal/parser"
	"github.com/fjglira/tfs-testcase-exporter/internal/resolver"
	"github.com/fjglira/tfs-testcase-exporter/internal/scanner"
	"github.com/fjglira/tfs-testcase-exporter/internal/source"
	"github.com/fjglira/tfs-testcase-exporter/internal/workitem"
	"github.com/fjglira/tfs-testcase-exporter/internal/writer"
)

func item(id int, typeName, title, steps string) domain.WorkItem {
	return domain.WorkItem{
		ID:       id,
		TypeName: typeName,
		Title:    title,
		Fields:   map[string]string{domain.FieldSteps: steps},
	}
}

func step(action, expected string) string {
	return fmt.Sprintf("<step><parameterizedString>%s</parameterizedString><parameterizedString>%s</parameterizedString></step>", action, expected)
}

var _ = Describe("Exporter", func() {
	var (
		cfg  *config.Config
		repo *workitem.MemoryRepository
		log  *logrus.Logger
		hook *test.Hook
		root string
		ctx  context.Context
	)

	newExporter := func(opts ...exporter.Option) *exporter.DefaultExporter {
		w, err := writer.NewFileWriter(writer.Options{
			Root:             cfg.Output.Directory,
			FileName:         cfg.Output.FileName,
			CombinedFileName: cfg.Output.CombinedFileName,
			Markdown:         cfg.HasFormat("markdown"),
			DryRun:           cfg.DryRun,
		}, log)
		Expect(err).ToNot(HaveOccurred())

		loader := source.NewLoader(scanner.NewScanner(true), parser.NewDefaultRegistry(), log)
		res := resolver.NewResolver(repo, log)
		return exporter.NewExporter(*cfg, loader, res, w, log, opts...)
	}

	read := func(rel ...string) string {
		data, err := os.ReadFile(filepath.Join(append([]string{root}, rel...)...))
		Expect(err).ToNot(HaveOccurred())
		return string(data)
	}

	BeforeEach(func() {
		ctx = context.Background()
		log, hook = test.NewNullLogger()
		root = filepath.Join(GinkgoT().TempDir(), "out")

		repo = workitem.NewMemoryRepository(
			item(100, domain.TypeTestCase, "Login", `<steps><step><parameterizedString>Enter &lt;b&gt;username&lt;/b&gt;</parameterizedString><parameterizedString>See dashboard</parameterizedString></step></steps>`),
			item(200, "Bug", "Crash on start", ""),
			item(300, domain.TypeTestCase, "Launch", `<steps><compref ref="301"/></steps>`),
			item(301, domain.TypeSharedSteps, "Open app", "<steps>"+step("Tap icon", "App opens")+"</steps>"),
			item(400, domain.TypeTestCase, "Broken", "<steps><step>"),
			item(500, domain.TypeTestCase, "Loop", `<steps><compref ref="501"/></steps>`),
			item(501, domain.TypeSharedSteps, "Loop A", `<steps><compref ref="502"/></steps>`),
			item(502, domain.TypeSharedSteps, "Loop B", `<steps><compref ref="501"/></steps>`),
		)

		cfg = config.DefaultConfig()
		cfg.Output.Directory = root
		cfg.Folders = []config.FolderConfig{
			{Name: "smoke", IDs: []int{100, 200, 300}},
			{Name: "regression", IDs: []int{999, 400, 500, 100}},
		}
	})

	It("should write every folder with the resolved cases in input order", func() {
		summary, err := newExporter().Export(ctx)
		Expect(err).ToNot(HaveOccurred())

		smoke := read("smoke", "testcases.json")
		Expect(gjson.Get(smoke, "#.id").String()).To(Equal("[100,300]"))
		Expect(gjson.Get(smoke, "0.steps.0.action").String()).To(Equal("Enter username"))
		Expect(gjson.Get(smoke, "0.steps.0.expectedResult").String()).To(Equal("See dashboard"))
		Expect(gjson.Get(smoke, "1.steps.#.action").String()).To(Equal(`["Open app","Tap icon"]`))
		Expect(gjson.Get(smoke, "1.steps.0.expectedResult").String()).To(Equal(""))

		regression := read("regression", "testcases.json")
		Expect(gjson.Get(regression, "#.id").String()).To(Equal("[100]"))

		Expect(summary.Folders).To(Equal(2))
		Expect(summary.Written).To(Equal(3))
		Expect(summary.Skipped).To(Equal(1))
		Expect(summary.Failed).To(Equal(3))
		Expect(summary.Files).To(ConsistOf(
			filepath.Join(root, "smoke", "testcases.json"),
			filepath.Join(root, "regression", "testcases.json"),
		))
		Expect(summary.RunID).ToNot(BeEmpty())
	})

	It("should log one diagnostic per skipped or failed item", func() {
		_, err := newExporter().Export(ctx)
		Expect(err).ToNot(HaveOccurred())

		var warnings, errs []string
		for _, e := range hook.AllEntries() {
			switch e.Level {
			case logrus.WarnLevel:
				warnings = append(warnings, e.Message)
			case logrus.ErrorLevel:
				errs = append(errs, e.Message)
			}
		}
		Expect(warnings).To(Equal([]string{"Work item 200 is not a Test Case"}))
		Expect(errs).To(HaveLen(3))
		Expect(errs[0]).To(HavePrefix("Error processing work item 999"))
		Expect(errs[1]).To(HavePrefix("Error processing work item 400"))
		Expect(errs[2]).To(HavePrefix("Error processing work item 500"))
		Expect(errs[2]).To(ContainSubstring(domain.ErrCycleDetected.Error()))
	})

	It("should tag every entry with the run id", func() {
		summary, err := newExporter().Export(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(hook.LastEntry().Data).To(HaveKeyWithValue("run", summary.RunID))
	})

	It("should produce byte-identical output when run twice", func() {
		_, err := newExporter().Export(ctx)
		Expect(err).ToNot(HaveOccurred())
		first := read("smoke", "testcases.json")

		_, err = newExporter().Export(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(read("smoke", "testcases.json")).To(Equal(first))
	})

	It("should keep writing other folders when one folder cannot be written", func() {
		cfg.Folders = []config.FolderConfig{
			{Name: "first", IDs: []int{100}},
			{Name: "second", IDs: []int{300}},
		}
		Expect(os.MkdirAll(root, 0755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(root, "first"), []byte("in the way"), 0644)).To(Succeed())

		summary, err := newExporter().Export(ctx)
		Expect(err).To(MatchError(ContainSubstring("failed to create output directory")))
		Expect(summary.WriteFailures).To(Equal(1))
		Expect(summary.Folders).To(Equal(2))
		Expect(summary.Files).To(Equal([]string{filepath.Join(root, "second", "testcases.json")}))
		Expect(gjson.Get(read("second", "testcases.json"), "#.id").String()).To(Equal("[300]"))
	})

	It("should write a folder whose items all failed as an empty array", func() {
		cfg.Folders = []config.FolderConfig{{Name: "bugs", IDs: []int{200}}}
		_, err := newExporter().Export(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(read("bugs", "testcases.json")).To(Equal("[]\n"))
	})

	It("should write a single combined file in group order", func() {
		cfg.Output.SingleFile = true
		summary, err := newExporter().Export(ctx)
		Expect(err).ToNot(HaveOccurred())

		Expect(summary.Files).To(Equal([]string{filepath.Join(root, "all_testcases.json")}))
		Expect(gjson.Get(read("all_testcases.json"), "#.id").String()).To(Equal("[100,300,100]"))
		Expect(filepath.Join(root, "smoke")).ToNot(BeAnExistingFile())
	})

	It("should export only the selected folders", func() {
		summary, err := newExporter(exporter.WithFolders("regression")).Export(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(summary.Folders).To(Equal(1))
		Expect(filepath.Join(root, "smoke")).ToNot(BeAnExistingFile())
	})

	It("should reject unknown folders", func() {
		_, err := newExporter(exporter.WithFolders("desktop")).Export(ctx)
		Expect(errors.Is(err, domain.ErrConfig)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("desktop"))
	})

	It("should resolve but write nothing in dry-run mode", func() {
		cfg.DryRun = true
		summary, err := newExporter().Export(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(summary.Written).To(Equal(3))
		Expect(summary.Files).To(BeEmpty())
		Expect(root).ToNot(BeAnExistingFile())
	})

	It("should write markdown reports when enabled", func() {
		cfg.Output.Formats = []string{"json", "markdown"}
		_, err := newExporter().Export(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(read("smoke", writer.ReportFileName)).To(ContainSubstring("## 300: Launch"))
	})

	It("should not touch the output tree when there is nothing to export", func() {
		cfg.Folders = nil
		summary, err := newExporter().Export(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(summary.Folders).To(BeZero())
		Expect(root).ToNot(BeAnExistingFile())
	})

	Context("when another export holds the lock", func() {
		var held *flock.Flock

		BeforeEach(func() {
			Expect(os.MkdirAll(root, 0755)).To(Succeed())
			held = flock.New(filepath.Join(root, exporter.LockFileName))
			locked, err := held.TryLock()
			Expect(err).ToNot(HaveOccurred())
			Expect(locked).To(BeTrue())
			DeferCleanup(held.Unlock)
		})

		It("should fail without writing", func() {
			shortCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
			defer cancel()

			_, err := newExporter().Export(shortCtx)
			Expect(err).To(MatchError(ContainSubstring("locked by another export")))
			Expect(filepath.Join(root, "smoke")).ToNot(BeAnExistingFile())
		})

		It("should ignore the lock when locking is disabled", func() {
			cfg.Output.Lock = false
			_, err := newExporter().Export(ctx)
			Expect(err).ToNot(HaveOccurred())
		})
	})

	It("should stop when the context is cancelled", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := newExporter().Export(cancelled)
		Expect(err).To(HaveOccurred())
	})
})
