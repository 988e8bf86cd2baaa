package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func TestArchiveKeepsNamespacedNames(t *testing.T) {
	data, err := Archive([]Entry{
		{Name: "thumbnails/1-a.jpg", Data: []byte("jpeg")},
		{Name: "large/1-a.webp", Data: []byte("webp")},
	})
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(zr.File))
	}
	if zr.File[0].Name != "thumbnails/1-a.jpg" || zr.File[1].Name != "large/1-a.webp" {
		t.Fatalf("unexpected names: %s, %s", zr.File[0].Name, zr.File[1].Name)
	}
	rc, err := zr.File[1].Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "webp" {
		t.Fatalf("entry content = %q", body)
	}
}
