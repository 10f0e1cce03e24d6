package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"coverletter-backend/internal/ingest"
)

// readResume loads path as an upload, sniffing its type unless mediaType is set.
func readResume(path, mediaType string) (ingest.UploadedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ingest.UploadedFile{}, fmt.Errorf("failed to read resume: %w", err)
	}
	if strings.TrimSpace(mediaType) == "" {
		mediaType = ingest.DetectMediaType(path, data)
	}
	return ingest.UploadedFile{
		Name:      filepath.Base(path),
		MediaType: mediaType,
		Data:      data,
	}, nil
}
