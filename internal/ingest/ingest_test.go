package ingest

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClassifyExplicitDataset(t *testing.T) {
	r := NewResolver(Options{})

	row, err := r.Classify(",https://data.example/ds1,https://hf.co/m1")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if row.CodeURL != "" {
		t.Errorf("code url = %q, want empty", row.CodeURL)
	}
	if row.DatasetURL != "https://data.example/ds1" {
		t.Errorf("dataset url = %q", row.DatasetURL)
	}
	if row.DatasetInferred {
		t.Error("explicit dataset marked inferred")
	}
	if row.ModelURL != "https://hf.co/m1" {
		t.Errorf("model url = %q", row.ModelURL)
	}
	if row.Name != "m1" || row.Category != CategoryModel {
		t.Errorf("name/category = %q/%q", row.Name, row.Category)
	}
}

func TestClassifyInfersDatasetFromPriorLine(t *testing.T) {
	r := NewResolver(Options{})

	if _, err := r.Classify(",https://data.example/ds1,https://hf.co/m1"); err != nil {
		t.Fatalf("seed line: %v", err)
	}
	row, err := r.Classify(",,https://hf.co/m2")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if row.DatasetURL != "https://data.example/ds1" {
		t.Errorf("dataset url = %q, want inherited ds1", row.DatasetURL)
	}
	if !row.DatasetInferred {
		t.Error("inherited dataset not marked inferred")
	}
}

func TestClassifyDropsModellessLine(t *testing.T) {
	r := NewResolver(Options{})

	_, err := r.Classify(",,")
	if !errors.Is(err, ErrMissingModel) {
		t.Fatalf("err = %v, want ErrMissingModel", err)
	}
	_, err = r.Classify("https://github.com/x/y,https://data.example/ds,")
	if !errors.Is(err, ErrMissingModel) {
		t.Fatalf("err = %v, want ErrMissingModel", err)
	}
	_, err = r.Classify(",,not-a-url")
	if !errors.Is(err, ErrMissingModel) {
		t.Fatalf("malformed model url: err = %v, want ErrMissingModel", err)
	}
}

func TestClassifyNoDatasetToInfer(t *testing.T) {
	r := NewResolver(Options{})

	row, err := r.Classify("https://github.com/x/y,,https://hf.co/m3")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if row.CodeURL != "https://github.com/x/y" {
		t.Errorf("code url = %q", row.CodeURL)
	}
	if row.DatasetURL != "" || row.DatasetInferred {
		t.Errorf("dataset = %q inferred=%v, want empty/false", row.DatasetURL, row.DatasetInferred)
	}
}

func TestClassifyInvalidDatasetFallsThroughToInference(t *testing.T) {
	r := NewResolver(Options{})

	if _, err := r.Classify(",https://data.example/ds1,https://hf.co/m1"); err != nil {
		t.Fatalf("seed line: %v", err)
	}
	row, err := r.Classify(",not-a-url,https://hf.co/m4")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if row.DatasetURL != "https://data.example/ds1" || !row.DatasetInferred {
		t.Errorf("dataset = %q inferred=%v, want ds1/true", row.DatasetURL, row.DatasetInferred)
	}
	// The invalid slot must not become the inference source.
	row, err = r.Classify(",,https://hf.co/m5")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if row.DatasetURL != "https://data.example/ds1" {
		t.Errorf("dataset = %q, invalid slot leaked into state", row.DatasetURL)
	}
}

func TestClassifyInvalidCodeURLDegradesToEmpty(t *testing.T) {
	r := NewResolver(Options{})

	row, err := r.Classify("ftp://mirror/x,,https://hf.co/m1")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if row.CodeURL != "" {
		t.Errorf("code url = %q, want empty for non-http scheme", row.CodeURL)
	}
}

func TestClassifyDatasetDedup(t *testing.T) {
	r := NewResolver(Options{})

	first, err := r.Classify(",https://data.example/ds1,https://hf.co/m1")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if first.DatasetAlreadySeen {
		t.Error("first occurrence marked already seen")
	}

	// Same dataset modulo case and trailing slash.
	second, err := r.Classify(",HTTPS://DATA.example/ds1/,https://hf.co/m2")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !second.DatasetAlreadySeen {
		t.Error("normalized duplicate not marked already seen")
	}

	// Inferred copies of an already-seen dataset are duplicates too.
	third, err := r.Classify(",,https://hf.co/m3")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !third.DatasetAlreadySeen {
		t.Error("inferred duplicate not marked already seen")
	}
}

func TestClassifyMalformedLines(t *testing.T) {
	r := NewResolver(Options{MaxLineBytes: 32})

	_, err := r.Classify("a,b,c,d")
	if !errors.Is(err, ErrMalformedLine) {
		t.Fatalf("extra slots: err = %v, want ErrMalformedLine", err)
	}
	_, err = r.Classify(strings.Repeat("x", 33))
	if !errors.Is(err, ErrMalformedLine) {
		t.Fatalf("oversized line: err = %v, want ErrMalformedLine", err)
	}
	_, err = r.Classify(",,https://hf.co/m\xff")
	if !errors.Is(err, ErrMalformedLine) {
		t.Fatalf("invalid utf-8: err = %v, want ErrMalformedLine", err)
	}
}

func TestClassifyCustomDelimiter(t *testing.T) {
	r := NewResolver(Options{Delimiter: ';'})

	row, err := r.Classify(";https://data.example/ds1;https://hf.co/m1")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if row.DatasetURL != "https://data.example/ds1" {
		t.Errorf("dataset url = %q", row.DatasetURL)
	}
}

func TestClassifyAll(t *testing.T) {
	input := strings.Join([]string{
		",https://data.example/ds1,https://hf.co/m1",
		",,https://hf.co/m2",
		",,",
		"https://github.com/x/y,,https://hf.co/m3",
		"",
		"a,b,c,d",
	}, "\n")

	rows, err := NewResolver(Options{}).ClassifyAll(strings.NewReader(input), discardLogger())
	if err != nil {
		t.Fatalf("classify all: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].ModelURL != "https://hf.co/m1" || rows[1].ModelURL != "https://hf.co/m2" || rows[2].ModelURL != "https://hf.co/m3" {
		t.Errorf("unexpected row order: %+v", rows)
	}
	if !rows[1].DatasetInferred {
		t.Error("second row should infer the dataset")
	}
	if rows[2].DatasetURL != "https://data.example/ds1" || !rows[2].DatasetInferred {
		t.Errorf("third row dataset = %q inferred=%v", rows[2].DatasetURL, rows[2].DatasetInferred)
	}
}

func TestClassifyAllSkipsArbitrarilyLongLines(t *testing.T) {
	input := strings.Repeat("x", 300<<10) + "\n" +
		",https://data.example/ds1,https://hf.co/m1\n"

	rows, err := NewResolver(Options{}).ClassifyAll(strings.NewReader(input), discardLogger())
	if err != nil {
		t.Fatalf("classify all: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].ModelURL != "https://hf.co/m1" {
		t.Errorf("model url = %q", rows[0].ModelURL)
	}

	// Same with a tiny limit and no trailing newline on the runaway line.
	rows, err = NewResolver(Options{MaxLineBytes: 32}).ClassifyAll(
		strings.NewReader(",,https://hf.co/m2\n"+strings.Repeat("y", 1<<20)), discardLogger())
	if err != nil {
		t.Fatalf("classify all: %v", err)
	}
	if len(rows) != 1 || rows[0].ModelURL != "https://hf.co/m2" {
		t.Fatalf("rows = %+v, want only m2", rows)
	}
}

func TestClassifyAllIdempotentAcrossFreshResolvers(t *testing.T) {
	input := strings.Join([]string{
		",https://data.example/ds1,https://hf.co/m1",
		",,https://hf.co/m2",
		",not-a-url,https://hf.co/m3",
	}, "\n")

	first, err := NewResolver(Options{}).ClassifyAll(strings.NewReader(input), discardLogger())
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, err := NewResolver(Options{}).ClassifyAll(strings.NewReader(input), discardLogger())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("row counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("row %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestClassifyOrderSensitivity(t *testing.T) {
	seed := ",https://data.example/ds1,https://hf.co/seed"
	a := ",https://data.example/ds2,https://hf.co/a"
	b := ",,https://hf.co/b"

	classify := func(lines ...string) []Row {
		t.Helper()
		rows, err := NewResolver(Options{}).ClassifyAll(strings.NewReader(strings.Join(lines, "\n")), discardLogger())
		if err != nil {
			t.Fatalf("classify all: %v", err)
		}
		return rows
	}

	forward := classify(seed, a, b)
	swapped := classify(seed, b, a)

	if forward[2].DatasetURL != "https://data.example/ds2" {
		t.Errorf("forward: b inherited %q, want ds2", forward[2].DatasetURL)
	}
	if swapped[1].DatasetURL != "https://data.example/ds1" {
		t.Errorf("swapped: b inherited %q, want ds1", swapped[1].DatasetURL)
	}
}

func TestValidURL(t *testing.T) {
	valid := []string{"https://hf.co/m1", "http://example.com", "https://example.com/a/b?rev=2"}
	for _, s := range valid {
		if !ValidURL(s) {
			t.Errorf("ValidURL(%q) = false", s)
		}
	}
	invalid := []string{"", "not-a-url", "ftp://example.com/x", "https://", "//example.com", "relative/path"}
	for _, s := range invalid {
		if ValidURL(s) {
			t.Errorf("ValidURL(%q) = true", s)
		}
	}
}

func TestNormalizeDatasetKey(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://data.example/ds1", "https://data.example/ds1"},
		{"HTTPS://Data.Example/ds1/", "https://data.example/ds1"},
		{"https://data.example/ds1#readme", "https://data.example/ds1"},
		{"https://data.example/ds1?rev=2", "https://data.example/ds1?rev=2"},
	}
	for _, tc := range cases {
		if got := NormalizeDatasetKey(tc.in); got != tc.want {
			t.Errorf("NormalizeDatasetKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
