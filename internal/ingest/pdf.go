package ingest

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document is a parsed PDF addressed by 1-based page index.
type Document interface {
	NumPage() int
	PageItems(ctx context.Context, index int) ([]string, error)
}

// PDFOpener parses raw bytes into a Document.
type PDFOpener func(data []byte) (Document, error)

// OpenPDF parses data with github.com/ledongthuc/pdf.
func OpenPDF(data []byte) (Document, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &pdfDocument{r: r}, nil
}

type pdfDocument struct {
	r *pdf.Reader
}

func (d *pdfDocument) NumPage() int {
	return d.r.NumPage()
}

// PageItems returns the text lines of a page, top line first. Glyphs within a
// line keep content-stream order and a space is inserted wherever the pen
// jumps by more than a fraction of the font size.
func (d *pdfDocument) PageItems(ctx context.Context, index int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page := d.r.Page(index)
	if page.V.IsNull() {
		return nil, nil
	}
	return layoutLines(page.Content().Text), nil
}

const (
	// wordGapRatio is the pen jump, relative to font size, read as a word break.
	wordGapRatio = 0.2
	// lineRatio is the baseline drift, relative to font size, tolerated within a line.
	lineRatio = 0.5
)

type textLine struct {
	y    float64
	b    strings.Builder
	last *pdf.Text
}

func (l *textLine) add(g *pdf.Text) {
	if l.last != nil {
		gap := g.X - (l.last.X + l.last.W)
		if math.Abs(gap) > scaled(g.FontSize, wordGapRatio) {
			l.space()
		}
	}
	if strings.TrimSpace(g.S) == "" {
		l.space()
	} else {
		l.b.WriteString(g.S)
	}
	l.last = g
}

func (l *textLine) space() {
	s := l.b.String()
	if s != "" && !strings.HasSuffix(s, " ") {
		l.b.WriteByte(' ')
	}
}

func scaled(size, ratio float64) float64 {
	if size <= 0 {
		return 1
	}
	return size * ratio
}

// layoutLines groups positioned glyphs into trimmed, non-empty lines.
func layoutLines(glyphs []pdf.Text) []string {
	var lines []*textLine
	for i := range glyphs {
		g := &glyphs[i]
		// TJ ends with a synthetic newline glyph.
		if g.S == "\n" || g.S == "\r" || g.S == "" {
			continue
		}
		var line *textLine
		for _, l := range lines {
			if math.Abs(l.y-g.Y) <= scaled(g.FontSize, lineRatio) {
				line = l
				break
			}
		}
		if line == nil {
			line = &textLine{y: g.Y}
			lines = append(lines, line)
		}
		line.add(g)
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].y > lines[j].y })

	items := make([]string, 0, len(lines))
	for _, l := range lines {
		if s := strings.TrimSpace(l.b.String()); s != "" {
			items = append(items, s)
		}
	}
	return items
}

// extractPDF walks pages 1..N in order. Pages are joined with a blank line and
// the lines of a page with single spaces.
func (i *Ingestor) extractPDF(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		// ledongthuc/pdf panics on some malformed inputs.
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("%w: pdf parser panic: %v", ErrExtractionFailure, rec)
		}
	}()

	doc, err := i.openPDF(data)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %w", ErrExtractionFailure, err)
	}

	n := doc.NumPage()
	pages := make([]string, 0, n)
	for idx := 1; idx <= n; idx++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		items, err := doc.PageItems(ctx, idx)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %w", ErrExtractionFailure, idx, err)
		}
		pages = append(pages, strings.Join(items, " "))
	}

	text = strings.Join(pages, pageSeparator)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text in %d page(s)", ErrExtractionFailure, n)
	}
	return text, nil
}
