package pgconf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/logging"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

// logger is the package-level logger for configuration file handling.
var logger = logging.Get("pgconf")

// Document is a parsed configuration file, top to bottom.
type Document struct {
	// Path is the file the document was read from, if any.
	Path string

	// Lines holds one entry per physical input line.
	Lines []Line
}

// Parse reads r line by line. Line terminators are kept in Line.Original
// so that untouched lines round-trip exactly.
func Parse(r io.Reader) (*Document, error) {
	br := bufio.NewReader(r)
	doc := &Document{}

	for {
		raw, err := br.ReadString('\n')
		if raw != "" {
			doc.Lines = append(doc.Lines, ParseLine(raw))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	return doc, nil
}

// ReadFile parses the configuration file at path.
// Any failure is reported as types.ErrConfigRead.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", types.ErrConfigRead, path, err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", types.ErrConfigRead, path, err)
	}
	doc.Path = path

	logger.Debug("configuration parsed", "path", path, "lines", len(doc.Lines))
	return doc, nil
}

// Len returns the number of lines in the document.
func (d *Document) Len() int {
	return len(d.Lines)
}

// Write merges settings into the document and writes the result to w.
// Nothing is written if the merge fails.
func (d *Document) Write(w io.Writer, settings types.Settings, opts ...Option) (*Result, error) {
	result, err := d.Merge(settings, opts...)
	if err != nil {
		return nil, err
	}

	if _, err := io.WriteString(w, result.String()); err != nil {
		return nil, fmt.Errorf("writing configuration: %w", err)
	}
	return result, nil
}

// WriteFile merges settings into the document and writes the result to
// path. The file is replaced atomically: the output either holds the full
// merged document or is left as it was.
func (d *Document) WriteFile(path string, settings types.Settings, opts ...Option) (*Result, error) {
	result, err := d.Merge(settings, opts...)
	if err != nil {
		return nil, err
	}

	if err := writeAtomic(path, []byte(result.String())); err != nil {
		return nil, err
	}

	logger.Info("configuration written",
		"path", path,
		"lines", len(result.Lines),
		"applied", len(result.Applied),
		"unmatched", len(result.Unmatched))
	return result, nil
}

// writeAtomic writes data to a temp file next to path and renames it into
// place. An existing file keeps its permission bits.
func writeAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		cleanup()
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// Result is the outcome of a merge.
type Result struct {
	// Lines is the rewritten document, one entry per output line.
	Lines []string

	// Applied maps each written key to its 1-based output line number.
	Applied map[string]int

	// Unmatched lists keys that found no line, in determination order.
	Unmatched []string

	// Appended is true when unmatched keys were added at end of file.
	Appended bool
}

// String joins the output lines into the file content.
func (r *Result) String() string {
	var sb strings.Builder
	for _, line := range r.Lines {
		sb.WriteString(line)
	}
	return sb.String()
}
