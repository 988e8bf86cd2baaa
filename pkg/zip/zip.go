package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"
)

// Entry is one file placed into an archive under Name.
type Entry struct {
	Name     string
	Data     []byte
	Modified time.Time
}

// Archive builds an in-memory zip of entries in order. Entries keep their
// slash-separated names so callers can namespace them by directory.
func Archive(entries []Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, entry := range entries {
		header := &zip.FileHeader{
			Name:     entry.Name,
			Method:   zip.Store,
			Modified: entry.Modified,
		}
		w, err := zw.CreateHeader(header)
		if err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("zip: create %s: %w", entry.Name, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("zip: write %s: %w", entry.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: finalize: %w", err)
	}
	return buf.Bytes(), nil
}
