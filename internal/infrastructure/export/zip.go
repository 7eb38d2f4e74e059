package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"
)

// BundleEntry is one file inside a bill bundle
type BundleEntry struct {
	Name string
	Data []byte
}

// BundleFileName names the all-bills archive for a point in time
func BundleFileName(at time.Time) string {
	return fmt.Sprintf("all_bills_%s.zip", at.Format("20060102_150405"))
}

// Bundle packs the given entries into a zip archive. Entry names must
// already be filesystem-safe.
func Bundle(entries []BundleEntry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("nothing to bundle")
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, entry := range entries {
		f, err := w.Create(entry.Name)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to add %s to bundle: %w", entry.Name, err)
		}
		if _, err := f.Write(entry.Data); err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to write %s to bundle: %w", entry.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize bundle: %w", err)
	}
	return buf.Bytes(), nil
}
