package ingest

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MediaTypePDF  = "application/pdf"
	MediaTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypeText = "text/plain"

	mediaTypeZip         = "application/zip"
	mediaTypeOctetStream = "application/octet-stream"
)

var extensionTypes = map[string]string{
	".pdf":  MediaTypePDF,
	".docx": MediaTypeDOCX,
	".txt":  MediaTypeText,
}

// Supported reports whether a normalized media type is accepted for upload.
func Supported(mediaType string) bool {
	switch mediaType {
	case MediaTypePDF, MediaTypeDOCX, MediaTypeText:
		return true
	default:
		return false
	}
}

// NormalizeMediaType lower-cases the declared type and drops parameters. Some
// browsers declare DOCX files as application/zip; those are mapped back to
// DOCX when the archive or the file name says so.
func NormalizeMediaType(mediaType string, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mediaType, ";")[0]))
	if clean != mediaTypeZip {
		return clean
	}
	if isDocxArchive(data) || strings.EqualFold(filepath.Ext(fileName), ".docx") {
		return MediaTypeDOCX
	}
	return clean
}

func isDocxArchive(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return true
		}
	}
	return false
}

// DetectMediaType derives a declared type for files that arrive without one,
// such as paths given on the command line. Content sniffing wins; the file
// extension is used when the content is inconclusive.
func DetectMediaType(fileName string, data []byte) string {
	detected := NormalizeMediaType(mimetype.Detect(data).String(), fileName, data)
	if Supported(detected) {
		return detected
	}
	if byExt, ok := extensionTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return byExt
	}
	if detected == "" {
		return mediaTypeOctetStream
	}
	return detected
}
