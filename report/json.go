package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON writes the full report as indented JSON, the format consumed by
// downstream dashboards and the NATS publisher.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// MarshalJSONBytes returns the compact JSON encoding of the report.
func (r *Report) MarshalJSONBytes() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}
