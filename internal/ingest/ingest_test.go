package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDocument struct {
	pages   [][]string
	failAt  int
	visited []int
}

func (d *fakeDocument) NumPage() int { return len(d.pages) }

func (d *fakeDocument) PageItems(_ context.Context, index int) ([]string, error) {
	d.visited = append(d.visited, index)
	if index == d.failAt {
		return nil, errors.New("bad content stream")
	}
	return d.pages[index-1], nil
}

func openerFor(doc Document) PDFOpener {
	return func([]byte) (Document, error) { return doc, nil }
}

func notifyRecorder() (Notifier, *[]string) {
	var calls []string
	return func(text string) { calls = append(calls, text) }, &calls
}

func TestAcceptPlainTextIsVerbatim(t *testing.T) {
	inputs := []string{
		"",
		"Jane Doe\nSoftware Engineer\n",
		"  leading and trailing spaces  ",
		"unicode: résumé - 履歴書\r\nwindows line",
	}
	ing := New(nil)
	for _, in := range inputs {
		notify, calls := notifyRecorder()
		err := ing.Accept(context.Background(), FromPicker(UploadedFile{
			Name:      "resume.txt",
			MediaType: "text/plain",
			Data:      []byte(in),
		}), notify)
		require.NoError(t, err)
		require.Len(t, *calls, 1)
		assert.Equal(t, in, (*calls)[0])
	}
}

func TestAcceptPlainTextWithCharsetParameter(t *testing.T) {
	notify, calls := notifyRecorder()
	err := New(nil).Accept(context.Background(), FromDrop(UploadedFile{
		Name:      "resume.txt",
		MediaType: "text/plain; charset=utf-8",
		Data:      []byte("hello"),
	}), notify)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, *calls)
}

func TestAcceptPDFJoinsItemsAndPagesInOrder(t *testing.T) {
	doc := &fakeDocument{pages: [][]string{
		{"Jane", "Doe"},
		{"Experience:", "Acme", "Corp"},
		{"Skills"},
	}}
	notify, calls := notifyRecorder()

	err := New(openerFor(doc)).Accept(context.Background(), FromPicker(UploadedFile{
		Name:      "resume.pdf",
		MediaType: "application/pdf",
		Data:      []byte("%PDF-fake"),
	}), notify)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, doc.visited)
	require.Len(t, *calls, 1)
	assert.Equal(t, "Jane Doe\n\nExperience: Acme Corp\n\nSkills", (*calls)[0])
}

func TestAcceptPDFKeepsEmptyPagesInSequence(t *testing.T) {
	doc := &fakeDocument{pages: [][]string{{"one"}, nil, {"three"}}}
	text, err := New(openerFor(doc)).Extract(context.Background(), UploadedFile{MediaType: MediaTypePDF})
	require.NoError(t, err)
	assert.Equal(t, "one\n\n\n\nthree", text)
}

func TestAcceptPDFPageFailureIsExtractionFailure(t *testing.T) {
	doc := &fakeDocument{pages: [][]string{{"a"}, {"b"}, {"c"}}, failAt: 2}
	notify, calls := notifyRecorder()

	err := New(openerFor(doc)).Accept(context.Background(), FromPicker(UploadedFile{
		Name:      "resume.pdf",
		MediaType: "application/pdf",
	}), notify)

	require.ErrorIs(t, err, ErrExtractionFailure)
	assert.Empty(t, *calls)
	assert.Equal(t, []int{1, 2}, doc.visited)
	assert.Equal(t, ExtractionFailureMessage, UserMessage(err))
}

func TestAcceptPDFWithoutTextIsExtractionFailure(t *testing.T) {
	doc := &fakeDocument{pages: [][]string{{" "}, nil}}
	_, err := New(openerFor(doc)).Extract(context.Background(), UploadedFile{MediaType: MediaTypePDF})
	require.ErrorIs(t, err, ErrExtractionFailure)
}

func TestAcceptPDFOpenerPanicIsRecovered(t *testing.T) {
	opener := func([]byte) (Document, error) { panic("malformed xref") }
	_, err := New(opener).Extract(context.Background(), UploadedFile{MediaType: MediaTypePDF})
	require.ErrorIs(t, err, ErrExtractionFailure)
	assert.Contains(t, err.Error(), "malformed xref")
}

func TestAcceptMalformedPDFWithRealParser(t *testing.T) {
	notify, calls := notifyRecorder()
	err := New(nil).Accept(context.Background(), FromPicker(UploadedFile{
		Name:      "broken.pdf",
		MediaType: "application/pdf",
		Data:      []byte("this is not a pdf document"),
	}), notify)
	require.ErrorIs(t, err, ErrExtractionFailure)
	assert.Empty(t, *calls)
}

func TestAcceptRealPDFPagesInOrder(t *testing.T) {
	data := buildPDF([]string{"Alice", "Engineer"})
	text, err := New(nil).Extract(context.Background(), UploadedFile{
		Name:      "resume.pdf",
		MediaType: MediaTypePDF,
		Data:      data,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice\n\nEngineer", text)
}

func TestRealPDFMergesPositionedFragments(t *testing.T) {
	cases := []struct {
		name   string
		font   string
		stream string
		want   string
	}{
		{
			name:   "kerned TJ array",
			font:   helvetica,
			stream: "BT /F1 12 Tf 72 720 Td [(Sen) -20 (ior) -250 (Engineer)] TJ ET",
			want:   "Senior Engineer",
		},
		{
			name:   "backward TJ jump",
			font:   helvetica,
			stream: "BT /F1 12 Tf 72 720 Td [(Sen) -20 (ior) 250 (Engineer)] TJ ET",
			want:   "Senior Engineer",
		},
		{
			name:   "separate Tj runs on one line",
			font:   helvetica,
			stream: "BT /F1 12 Tf 72 720 Td (Senior) Tj 40 0 Td (Engineer) Tj ET",
			want:   "Senior Engineer",
		},
		{
			name:   "runs with glyph widths",
			font:   helveticaWithWidths,
			stream: "BT /F1 12 Tf 72 720 Td [(Sen) -20 (ior)] TJ 40 0 Td (Engineer) Tj ET",
			want:   "Senior Engineer",
		},
		{
			name:   "explicit spaces are kept once",
			font:   helvetica,
			stream: "BT /F1 12 Tf 72 720 Td (Jane  Doe) Tj ET",
			want:   "Jane Doe",
		},
		{
			name:   "lines top to bottom",
			font:   helvetica,
			stream: "BT /F1 12 Tf 72 700 Td (Engineer) Tj ET BT /F1 12 Tf 72 720 Td (Jane Doe) Tj ET",
			want:   "Jane Doe Engineer",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := buildPDFWithFont(tc.font, []string{tc.stream})
			text, err := New(nil).Extract(context.Background(), UploadedFile{MediaType: MediaTypePDF, Data: data})
			require.NoError(t, err)
			assert.Equal(t, tc.want, text)
		})
	}
}

func TestLayoutLinesDropsBlankLines(t *testing.T) {
	glyphs := []pdf.Text{
		{S: " ", X: 72, Y: 740, FontSize: 12},
		{S: "B", X: 72, Y: 700, FontSize: 12, W: 8},
		{S: "\n", X: 80, Y: 700, FontSize: 12},
		{S: "A", X: 72, Y: 720, FontSize: 12, W: 8},
		{S: "b", X: 80.5, Y: 700.4, FontSize: 12, W: 6},
	}
	assert.Equal(t, []string{"A", "Bb"}, layoutLines(glyphs))
}

func TestAcceptDocxPlaceholder(t *testing.T) {
	notify, calls := notifyRecorder()
	err := New(nil).Accept(context.Background(), FromDrop(UploadedFile{
		Name:      "cv.docx",
		MediaType: MediaTypeDOCX,
		Data:      []byte("PK..."),
	}), notify)
	require.NoError(t, err)
	require.Len(t, *calls, 1)
	assert.Equal(t, "Resume for cv.docx uploaded.\n\n(Support for .docx can be added later.)", (*calls)[0])
}

func TestAcceptZipDeclaredDocxIsNormalized(t *testing.T) {
	data := zipWith(t, "word/document.xml")
	text, err := New(nil).Extract(context.Background(), UploadedFile{
		Name:      "cv",
		MediaType: "application/zip",
		Data:      data,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Resume for cv uploaded."))
}

func TestAcceptRejectsUnsupportedTypes(t *testing.T) {
	for _, mediaType := range []string{"image/png", "application/msword", "", "application/zip"} {
		notify, calls := notifyRecorder()
		err := New(nil).Accept(context.Background(), FromPicker(UploadedFile{
			Name:      "photo.png",
			MediaType: mediaType,
			Data:      zipWith(t, "notes.txt"),
		}), notify)
		require.ErrorIs(t, err, ErrUnsupportedFileType, "type %q", mediaType)
		assert.Empty(t, *calls)
		assert.Equal(t, UnsupportedTypeMessage, UserMessage(err))
	}
}

func TestAcceptCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	notify, calls := notifyRecorder()
	err := New(nil).Accept(ctx, FromPicker(UploadedFile{MediaType: MediaTypeText}), notify)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, *calls)
}

func TestParseSourceKind(t *testing.T) {
	assert.Equal(t, SourceDrop, ParseSourceKind("drop"))
	assert.Equal(t, SourceDrop, ParseSourceKind(" DROP "))
	assert.Equal(t, SourcePicker, ParseSourceKind("picker"))
	assert.Equal(t, SourcePicker, ParseSourceKind(""))
	assert.Equal(t, "drop", SourceDrop.String())
}

func TestDetectMediaType(t *testing.T) {
	assert.Equal(t, MediaTypeText, DetectMediaType("resume.txt", []byte("plain words\n")))
	assert.Equal(t, MediaTypePDF, DetectMediaType("resume.pdf", buildPDF([]string{"x"})))
	assert.Equal(t, MediaTypeDOCX, DetectMediaType("cv.docx", zipWith(t, "word/document.xml")))
	assert.Equal(t, "image/png", DetectMediaType("photo.png", []byte("\x89PNG\r\n\x1a\n0000")))
}

func zipWith(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("<x/>"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const helvetica = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"

// Every printable ASCII glyph is half an em wide.
var helveticaWithWidths = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding" +
	" /FirstChar 32 /LastChar 126 /Widths [" + widths500 + "] >>"

var widths500 = strings.TrimSpace(strings.Repeat("500 ", 95))

// buildPDF writes a minimal PDF with one line of Helvetica text per page.
func buildPDF(pages []string) []byte {
	streams := make([]string, 0, len(pages))
	for _, text := range pages {
		streams = append(streams, fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text))
	}
	return buildPDFWithFont(helvetica, streams)
}

// buildPDFWithFont writes one page per content stream, each with font as /F1.
func buildPDFWithFont(font string, streams []string) []byte {
	n := len(streams)
	// Object layout: 1 catalog, 2 pages, 3 font, then (page, content) pairs.
	objects := make([]string, 0, 3+2*n)
	kids := make([]string, 0, n)
	for i := range streams {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
		font,
	)
	for i, stream := range streams {
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}
