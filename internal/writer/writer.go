// Package writer persists resolved test cases as JSON files, optionally with
// a Markdown report next to each.
package writer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/fjglira/tfs-testcase-exporter/internal/domain"
)

// Writer writes the test cases of one export run.
type Writer interface {
	// WriteFolder writes cases to <root>/<folder>/<file name>.
	WriteFolder(folder string, cases []domain.TestCase) ([]string, error)
	// WriteCombined writes cases to <root>/<combined file name>.
	WriteCombined(cases []domain.TestCase) ([]string, error)
}

// Options configures a FileWriter.
type Options struct {
	Root             string
	FileName         string
	CombinedFileName string
	Markdown         bool
	DryRun           bool
}

// FileWriter implements Writer on the local file system.
type FileWriter struct {
	opts   Options
	report *Report
	log    *logrus.Logger
}

// NewFileWriter creates a new FileWriter.
func NewFileWriter(opts Options, log *logrus.Logger) (*FileWriter, error) {
	w := &FileWriter{opts: opts, log: log}
	if opts.Markdown {
		report, err := NewReport()
		if err != nil {
			return nil, err
		}
		w.report = report
	}
	return w, nil
}

func (w *FileWriter) WriteFolder(folder string, cases []domain.TestCase) ([]string, error) {
	dir := filepath.Join(w.opts.Root, folder)
	return w.write(dir, w.opts.FileName, folder, cases)
}

func (w *FileWriter) WriteCombined(cases []domain.TestCase) ([]string, error) {
	return w.write(w.opts.Root, w.opts.CombinedFileName, filepath.Base(w.opts.Root), cases)
}

func (w *FileWriter) write(dir, fileName, title string, cases []domain.TestCase) ([]string, error) {
	data, err := Encode(cases)
	if err != nil {
		return nil, domain.NewError("write", fileName, 0, "failed to encode test cases", err)
	}

	files := []outputFile{{filepath.Join(dir, fileName), data}}

	if w.report != nil {
		md, err := w.report.Render(title, cases)
		if err != nil {
			return nil, err
		}
		files = append(files, outputFile{filepath.Join(dir, ReportFileName), md})
	}

	var written []string
	for _, f := range files {
		if w.opts.DryRun {
			w.log.Infof("[DRY-RUN] Would write: %s", f.path)
			w.log.Debugf("[DRY-RUN] Content:\n%s", f.data)
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return written, domain.NewErrorWithSuggestion("write", dir, 0,
				"failed to create output directory",
				"check that the parent directory exists and has write permissions",
				err)
		}
		if err := atomicWriteFile(f.path, f.data, 0644); err != nil {
			return written, domain.NewErrorWithSuggestion("write", f.path, 0,
				"failed to write output file",
				"check disk space and write permissions for the output directory",
				err)
		}
		w.log.Infof("Wrote %s", f.path)
		written = append(written, f.path)
	}
	return written, nil
}

type outputFile struct {
	path string
	data []byte
}

// Encode renders cases as an indented JSON array terminated by a newline.
// A nil or empty slice encodes as [].
func Encode(cases []domain.TestCase) ([]byte, error) {
	out := make([]domain.TestCase, len(cases))
	copy(out, cases)
	for i := range out {
		if out[i].Steps == nil {
			out[i].Steps = []domain.Step{}
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// atomicWriteFile writes to a temporary file and renames it over path.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
