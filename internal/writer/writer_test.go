package writer_test

import (
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/fjglira/tfs-testcase-exporter/internal/domain"
	"github.com/fjglira/tfs-testcase-exporter/internal/writer"
)

const loginJSON = `[
  {
    "id": 100,
    "title": "Login",
    "steps": [
      {
        "action": "Enter username",
        "expectedResult": "See dashboard"
      }
    ]
  }
]
`

var login = domain.TestCase{
	ID:    100,
	Title: "Login",
	Steps: []domain.Step{{Action: "Enter username", ExpectedResult: "See dashboard"}},
}

var _ = Describe("Encode", func() {
	It("should pretty-print with two-space indentation", func() {
		data, err := writer.Encode([]domain.TestCase{login})
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(Equal(loginJSON))
	})

	It("should encode no cases as an empty array", func() {
		data, err := writer.Encode(nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(Equal("[]\n"))
	})

	It("should encode missing steps as an empty array", func() {
		data, err := writer.Encode([]domain.TestCase{{ID: 1, Title: "Empty"}})
		Expect(err).ToNot(HaveOccurred())

		var decoded []map[string]any
		Expect(json.Unmarshal(data, &decoded)).To(Succeed())
		Expect(decoded[0]["steps"]).To(Equal([]any{}))
	})

	It("should not escape HTML-significant characters", func() {
		data, err := writer.Encode([]domain.TestCase{{ID: 1, Title: "Save & exit > menu"}})
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"Save & exit > menu"`))
	})

	It("should produce identical bytes for identical input", func() {
		first, err := writer.Encode([]domain.TestCase{login})
		Expect(err).ToNot(HaveOccurred())
		second, err := writer.Encode([]domain.TestCase{login})
		Expect(err).ToNot(HaveOccurred())
		Expect(second).To(Equal(first))
	})
})

var _ = Describe("FileWriter", func() {
	var (
		root string
		hook *test.Hook
		opts writer.Options
	)

	newWriter := func() *writer.FileWriter {
		log, h := test.NewNullLogger()
		hook = h
		w, err := writer.NewFileWriter(opts, log)
		Expect(err).ToNot(HaveOccurred())
		return w
	}

	BeforeEach(func() {
		root = filepath.Join(GinkgoT().TempDir(), "out")
		opts = writer.Options{
			Root:             root,
			FileName:         "testcases.json",
			CombinedFileName: "all_testcases.json",
		}
	})

	It("should write one file per folder", func() {
		paths, err := newWriter().WriteFolder("smoke", []domain.TestCase{login})
		Expect(err).ToNot(HaveOccurred())

		want := filepath.Join(root, "smoke", "testcases.json")
		Expect(paths).To(Equal([]string{want}))
		Expect(os.ReadFile(want)).To(BeEquivalentTo(loginJSON))
		Expect(hook.LastEntry().Message).To(Equal("Wrote " + want))
	})

	It("should write an empty folder as []", func() {
		_, err := newWriter().WriteFolder("empty", nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(os.ReadFile(filepath.Join(root, "empty", "testcases.json"))).To(BeEquivalentTo("[]\n"))
	})

	It("should overwrite previous output", func() {
		w := newWriter()
		_, err := w.WriteFolder("smoke", []domain.TestCase{login, login})
		Expect(err).ToNot(HaveOccurred())
		_, err = w.WriteFolder("smoke", []domain.TestCase{login})
		Expect(err).ToNot(HaveOccurred())

		Expect(os.ReadFile(filepath.Join(root, "smoke", "testcases.json"))).To(BeEquivalentTo(loginJSON))
		Expect(filepath.Join(root, "smoke", "testcases.json.tmp")).ToNot(BeAnExistingFile())
	})

	It("should write the combined file at the root", func() {
		paths, err := newWriter().WriteCombined([]domain.TestCase{login})
		Expect(err).ToNot(HaveOccurred())
		Expect(paths).To(Equal([]string{filepath.Join(root, "all_testcases.json")}))
	})

	It("should write nothing in dry-run mode", func() {
		opts.DryRun = true
		paths, err := newWriter().WriteFolder("smoke", []domain.TestCase{login})
		Expect(err).ToNot(HaveOccurred())
		Expect(paths).To(BeEmpty())
		Expect(root).ToNot(BeAnExistingFile())
		Expect(hook.Entries[0].Message).To(ContainSubstring("[DRY-RUN] Would write"))
	})

	It("should fail when the root is not a directory", func() {
		Expect(os.WriteFile(root, []byte("x"), 0644)).To(Succeed())
		_, err := newWriter().WriteFolder("smoke", nil)
		Expect(err).To(MatchError(ContainSubstring("failed to create output directory")))
	})

	Context("with the markdown format", func() {
		BeforeEach(func() {
			opts.Markdown = true
		})

		It("should write a report next to the JSON file", func() {
			cases := []domain.TestCase{
				login,
				{ID: 101, Title: "Logout", Steps: []domain.Step{{Action: "Tap a | b", ExpectedResult: "Line one\nline two"}}},
				{ID: 102, Title: "Empty", Steps: []domain.Step{}},
			}
			paths, err := newWriter().WriteFolder("smoke", cases)
			Expect(err).ToNot(HaveOccurred())
			Expect(paths).To(HaveLen(2))

			report, err := os.ReadFile(filepath.Join(root, "smoke", writer.ReportFileName))
			Expect(err).ToNot(HaveOccurred())
			Expect(string(report)).To(HavePrefix("# smoke\n\n3 test case(s).\n"))
			Expect(string(report)).To(ContainSubstring("## 100: Login"))
			Expect(string(report)).To(ContainSubstring("| 1 | Enter username | See dashboard |"))
			Expect(string(report)).To(ContainSubstring(`| 1 | Tap a \| b | Line one line two |`))
			Expect(string(report)).To(ContainSubstring("_No steps._"))
		})
	})
})
