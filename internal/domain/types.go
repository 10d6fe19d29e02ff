package domain

// Work item type names as reported by TFS.
const (
	TypeTestCase    = "Test Case"
	TypeSharedSteps = "Shared Steps"
)

// Field reference names read from a work item.
const (
	FieldID    = "System.Id"
	FieldType  = "System.WorkItemType"
	FieldTitle = "System.Title"
	FieldSteps = "Microsoft.VSTS.TCM.Steps"
)

// WorkItem is the subset of a TFS work item the exporter needs.
type WorkItem struct {
	ID       int               `json:"id"`
	TypeName string            `json:"typeName"`
	Title    string            `json:"title"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// StepsXML returns the raw steps document, or "" when the field is absent.
func (w *WorkItem) StepsXML() string {
	if w.Fields == nil {
		return ""
	}
	return w.Fields[FieldSteps]
}

// Step is a single flattened action of a test case.
type Step struct {
	Action         string `json:"action"`
	ExpectedResult string `json:"expectedResult"`
}

// TestCase is a fully resolved test case ready to be written.
type TestCase struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Steps []Step `json:"steps"`
}

// FolderGroup maps an output folder to the work items exported into it.
type FolderGroup struct {
	Name   string
	IDs    []int
	Source string // where the grouping came from: "config", a file path, ...
}

// Result is the outcome of resolving one work item ID.
type Result struct {
	ID       int
	TestCase *TestCase
	Err      error
}

// Partition splits results into resolved test cases and failures, keeping order.
func Partition(results []Result) ([]TestCase, []Result) {
	cases := make([]TestCase, 0, len(results))
	var failed []Result
	for _, r := range results {
		if r.Err != nil || r.TestCase == nil {
			failed = append(failed, r)
			continue
		}
		cases = append(cases, *r.TestCase)
	}
	return cases, failed
}
