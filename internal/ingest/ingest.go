// Package ingest parses delimiter-separated URL rows and resolves
// dataset links across a batch. Each input line carries up to three
// slots in fixed order: code, dataset, model. Only lines with a valid
// model URL produce a row; a dataset omitted from a line is inherited
// from the most recent line that named one explicitly.
package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	// CategoryModel is the artifact category every emitted row carries.
	// Code- and dataset-only lines are inputs to model scoring, not
	// artifacts of their own.
	CategoryModel = "MODEL"

	defaultMaxLineBytes = 64 << 10
	slotCount           = 3
)

var (
	// ErrMissingModel marks a line whose model slot is empty or not a
	// valid URL. The line is dropped, the batch continues.
	ErrMissingModel = errors.New("missing model url")

	// ErrMalformedLine marks a line that violates structural
	// assumptions: too long, invalid UTF-8, or more than three slots.
	ErrMalformedLine = errors.New("malformed line")
)

// Row is one fully classified input line.
type Row struct {
	CodeURL    string `json:"code_url,omitempty"`
	DatasetURL string `json:"dataset_url,omitempty"`
	ModelURL   string `json:"model_url"`

	// DatasetInferred is true when the line's own dataset slot was
	// empty or invalid and DatasetURL was carried forward from an
	// earlier line in the batch.
	DatasetInferred bool `json:"dataset_inferred"`

	// DatasetAlreadySeen is true when the resolved dataset URL had
	// already been emitted earlier in the batch, so downstream
	// ingestion of the dataset itself can be skipped.
	DatasetAlreadySeen bool `json:"dataset_already_seen"`

	Name     string `json:"name"`
	Category string `json:"category"`
}

// Options configure a Resolver. The zero value uses a comma delimiter
// and a 64 KiB line limit.
type Options struct {
	Delimiter    rune
	MaxLineBytes int
}

func (o Options) withDefaults() Options {
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	if o.MaxLineBytes <= 0 {
		o.MaxLineBytes = defaultMaxLineBytes
	}
	return o
}

// Resolver classifies lines one at a time, carrying dataset inference
// state forward. It is owned by a single batch loop; lines must be fed
// in input order and never concurrently.
type Resolver struct {
	opts Options

	lastSeenDataset string
	seenDatasets    map[string]struct{}
}

// NewResolver returns a Resolver with fresh state for one batch.
func NewResolver(opts Options) *Resolver {
	return &Resolver{
		opts:         opts.withDefaults(),
		seenDatasets: make(map[string]struct{}),
	}
}

// Classify parses one line into a Row. It returns ErrMissingModel or
// ErrMalformedLine (wrapped with detail) for lines that produce no row;
// the caller logs and moves on.
func (r *Resolver) Classify(line string) (Row, error) {
	if len(line) > r.opts.MaxLineBytes {
		return Row{}, fmt.Errorf("%w: line exceeds %d bytes", ErrMalformedLine, r.opts.MaxLineBytes)
	}
	if !utf8.ValidString(line) {
		return Row{}, fmt.Errorf("%w: invalid utf-8", ErrMalformedLine)
	}

	slots := strings.Split(line, string(r.opts.Delimiter))
	if len(slots) > slotCount {
		return Row{}, fmt.Errorf("%w: %d fields, want at most %d", ErrMalformedLine, len(slots), slotCount)
	}
	for len(slots) < slotCount {
		slots = append(slots, "")
	}

	codeSlot := strings.TrimSpace(slots[0])
	datasetSlot := strings.TrimSpace(slots[1])
	modelSlot := strings.TrimSpace(slots[2])

	if modelSlot == "" {
		return Row{}, fmt.Errorf("%w: model slot empty", ErrMissingModel)
	}
	if !ValidURL(modelSlot) {
		return Row{}, fmt.Errorf("%w: %q is not a valid url", ErrMissingModel, modelSlot)
	}

	row := Row{
		ModelURL: modelSlot,
		Name:     modelName(modelSlot),
		Category: CategoryModel,
	}

	// An invalid code URL degrades to empty. Downstream metrics treat
	// an empty code URL as unavailable, never as a score of zero.
	if codeSlot != "" && ValidURL(codeSlot) {
		row.CodeURL = codeSlot
	}

	switch {
	case datasetSlot != "" && ValidURL(datasetSlot):
		row.DatasetURL = datasetSlot
		r.lastSeenDataset = datasetSlot
	case r.lastSeenDataset != "":
		// Empty and invalid dataset slots both fall through to
		// inference: a bad dataset reference must not block scoring
		// the model.
		row.DatasetURL = r.lastSeenDataset
		row.DatasetInferred = true
	}

	if row.DatasetURL != "" {
		key := NormalizeDatasetKey(row.DatasetURL)
		if _, ok := r.seenDatasets[key]; ok {
			row.DatasetAlreadySeen = true
		} else {
			r.seenDatasets[key] = struct{}{}
		}
	}

	return row, nil
}

// ClassifyAll reads lines from rd in order and returns every row that
// classified cleanly. Per-line failures are logged and skipped; only a
// read failure on rd itself aborts the batch. Blank lines are ignored.
func (r *Resolver) ClassifyAll(rd io.Reader, logger *slog.Logger) ([]Row, error) {
	if logger == nil {
		logger = slog.Default()
	}

	br := bufio.NewReaderSize(rd, 64<<10)
	var rows []Row
	lineNo := 0
	for {
		line, tooLong, err := readLine(br, r.opts.MaxLineBytes)
		if err != nil && !errors.Is(err, io.EOF) {
			return rows, fmt.Errorf("read input: %w", err)
		}
		done := errors.Is(err, io.EOF)
		if done && line == "" && !tooLong {
			break
		}
		lineNo++

		switch {
		case tooLong:
			logger.Warn("line skipped", "line", lineNo,
				"error", fmt.Errorf("%w: line exceeds %d bytes", ErrMalformedLine, r.opts.MaxLineBytes))
		case strings.TrimSpace(line) == "":
		default:
			row, cerr := r.Classify(line)
			if cerr != nil {
				logger.Warn("line skipped", "line", lineNo, "error", cerr)
			} else {
				rows = append(rows, row)
			}
		}

		if done {
			break
		}
	}
	return rows, nil
}

// readLine returns the next line without its terminator. A line longer
// than max is drained to its newline and reported truncated, so one
// runaway line is skipped like any other malformed line instead of
// aborting the batch or being held in memory whole.
func readLine(br *bufio.Reader, max int) (line string, tooLong bool, err error) {
	var b strings.Builder
	for {
		chunk, err := br.ReadSlice('\n')
		if tooLong || b.Len()+len(chunk) > max+1 {
			tooLong = true
		} else {
			b.Write(chunk)
		}
		if err == nil || errors.Is(err, io.EOF) {
			line := strings.TrimSuffix(b.String(), "\n")
			line = strings.TrimSuffix(line, "\r")
			return line, tooLong, err
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return "", tooLong, err
		}
	}
}

// ValidURL reports whether s parses as an absolute http or https URL
// with a host.
func ValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// NormalizeDatasetKey builds the dedup key for a dataset URL: scheme
// and host lowercased, trailing slash stripped from the path, fragment
// dropped. The query survives because dataset revisions are sometimes
// addressed through it.
func NormalizeDatasetKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

func modelName(modelURL string) string {
	u, err := url.Parse(modelURL)
	if err != nil {
		return modelURL
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return u.Host
	}
	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}
