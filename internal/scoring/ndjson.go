package scoring

import (
	"encoding/json"
	"io"
)

// NDJSONWriter writes reports as newline-delimited JSON, one report
// per line.
type NDJSONWriter struct {
	enc *json.Encoder
}

func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	return &NDJSONWriter{enc: enc}
}

func (w *NDJSONWriter) Write(report Report) error {
	return w.enc.Encode(report)
}

func (w *NDJSONWriter) WriteAll(reports []Report) error {
	for _, report := range reports {
		if err := w.enc.Encode(report); err != nil {
			return err
		}
	}
	return nil
}
