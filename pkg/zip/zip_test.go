package zip

import (
	"archive/zip"
	"bytes"
	"testing"
)

func TestArchiveAssets(t *testing.T) {
	data, err := ArchiveAssets([]Asset{
		{Filename: "manifest.json", MIME: "application/json", Data: []byte(`{}`)},
		{Filename: "/sessions/s1/segments/shot_001.mp4", Data: []byte("clip")},
		{Filename: "../escape.txt", Data: []byte("nope")},
		{Filename: "", Data: []byte("nope")},
	})
	if err != nil {
		t.Fatalf("ArchiveAssets() error = %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("entries = %d, want 2", len(zr.File))
	}
	if got := zr.File[0].Name; got != "manifest.json" {
		t.Fatalf("first entry = %q, want manifest.json", got)
	}
	if got := zr.File[0].Comment; got != "application/json" {
		t.Fatalf("first entry comment = %q, want application/json", got)
	}
	if got := zr.File[1].Name; got != "sessions/s1/segments/shot_001.mp4" {
		t.Fatalf("second entry = %q, leading slash should be stripped", got)
	}
}
