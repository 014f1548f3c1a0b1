// Package zip builds in-memory archives for session exports.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"strings"
)

// Asset is one file destined for an archive. MIME, when set, is recorded as
// the entry comment so inspection tools can tell segments from manifests.
type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// ArchiveAssets writes every asset into a single zip. Filenames are
// normalized to clean, relative, slash-separated paths; assets with empty
// names are skipped.
func ArchiveAssets(assets []Asset) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, asset := range assets {
		name := cleanEntryName(asset.Filename)
		if name == "" {
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:    name,
			Method:  zip.Deflate,
			Comment: asset.MIME,
		})
		if err != nil {
			return nil, fmt.Errorf("zip: create entry %q: %w", name, err)
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil, fmt.Errorf("zip: write entry %q: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

func cleanEntryName(name string) string {
	name = path.Clean(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimPrefix(name, "/")
	if name == "." || strings.HasPrefix(name, "..") {
		return ""
	}
	return name
}
