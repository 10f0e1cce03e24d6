package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// User-visible messages shown by the upload panel.
const (
	UnsupportedTypeMessage   = "Please upload a PDF, DOCX, or TXT file."
	ExtractionFailureMessage = "Failed to parse the file. Please try another format."
)

const pageSeparator = "\n\n"

var (
	// ErrUnsupportedFileType is returned when the declared media type is not accepted.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrExtractionFailure is returned when the parser fails or yields no text.
	ErrExtractionFailure = errors.New("extraction failed")
)

// UserMessage maps an ingestion error to the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrUnsupportedFileType) {
		return UnsupportedTypeMessage
	}
	return ExtractionFailureMessage
}

// SourceKind tags how a file reached the upload panel.
type SourceKind int

const (
	SourcePicker SourceKind = iota + 1
	SourceDrop
)

func (k SourceKind) String() string {
	switch k {
	case SourcePicker:
		return "picker"
	case SourceDrop:
		return "drop"
	default:
		return "unknown"
	}
}

// ParseSourceKind reads the form value sent by the page. Anything other than
// "drop" is treated as the file picker.
func ParseSourceKind(raw string) SourceKind {
	if strings.EqualFold(strings.TrimSpace(raw), "drop") {
		return SourceDrop
	}
	return SourcePicker
}

// UploadedFile is a file as the browser handed it over. It is never written to disk.
type UploadedFile struct {
	Name      string
	MediaType string
	Data      []byte
}

// Source is the single entry point value for both the picker and drag-and-drop.
type Source struct {
	Kind SourceKind
	File UploadedFile
}

// FromPicker wraps a file chosen through the native file picker.
func FromPicker(f UploadedFile) Source {
	return Source{Kind: SourcePicker, File: f}
}

// FromDrop wraps a file dropped onto the upload area.
func FromDrop(f UploadedFile) Source {
	return Source{Kind: SourceDrop, File: f}
}

// Notifier receives the extracted text. It is called once per successful extraction.
type Notifier func(text string)

// Ingestor turns uploaded files into plain text.
type Ingestor struct {
	openPDF PDFOpener
}

// New constructs an Ingestor. A nil opener uses OpenPDF.
func New(opener PDFOpener) *Ingestor {
	if opener == nil {
		opener = OpenPDF
	}
	return &Ingestor{openPDF: opener}
}

// Accept validates the declared type of src, extracts its text and hands the
// result to notify. On error notify is not called.
func (i *Ingestor) Accept(ctx context.Context, src Source, notify Notifier) error {
	text, err := i.Extract(ctx, src.File)
	if err != nil {
		return err
	}
	if notify != nil {
		notify(text)
	}
	return nil
}

// Extract returns the plain text of f without notifying anyone.
func (i *Ingestor) Extract(ctx context.Context, f UploadedFile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	mediaType := NormalizeMediaType(f.MediaType, f.Name, f.Data)
	switch mediaType {
	case MediaTypeText:
		return string(f.Data), nil
	case MediaTypePDF:
		return i.extractPDF(ctx, f.Data)
	case MediaTypeDOCX:
		return docxPlaceholder(f.Name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, mediaType)
	}
}

// docxPlaceholder stands in for DOCX extraction, which is not implemented.
func docxPlaceholder(name string) string {
	return fmt.Sprintf("Resume for %s uploaded.\n\n(Support for .docx can be added later.)", name)
}
