package page

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"coverletter-backend/internal/generation"
	"coverletter-backend/internal/ingest"
	"coverletter-backend/internal/jobdesc"
	"coverletter-backend/internal/letter"
	"coverletter-backend/internal/shared/metrics"
	"coverletter-backend/internal/shared/telemetry"
)

var (
	// ErrNotReady is returned by Generate when either input is blank.
	ErrNotReady = errors.New("resume and job description are required")
	// ErrInFlight is returned by Generate while a request is pending.
	ErrInFlight = errors.New("cover letter generation already in progress")
	// ErrNoLetter is returned by letter actions before a letter exists.
	ErrNoLetter = errors.New("no cover letter available")
)

// Generator produces a cover letter from a request.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (string, error)
}

// Controller owns the state of one page: the résumé, the job description,
// the request lifecycle and the displayed letter. All methods are safe for
// concurrent use; no lock is held while extracting or generating.
type Controller struct {
	id       string
	ingestor *ingest.Ingestor
	gen      Generator

	mu          sync.Mutex
	upload      Upload
	resume      string
	job         *jobdesc.Input
	jobText     string
	jobSeq      uint64
	phase       Phase
	view        *letter.View
	ingestToken uint64
	genToken    uint64
}

// NewController constructs a Controller. id labels log lines.
func NewController(id string, ingestor *ingest.Ingestor, gen Generator) *Controller {
	if ingestor == nil {
		ingestor = ingest.New(nil)
	}
	c := &Controller{
		id:       id,
		ingestor: ingestor,
		gen:      gen,
		phase:    PhaseIdle,
	}
	c.job = jobdesc.New(func(text string) { c.jobText = text })
	return c
}

// IngestResume runs src through the ingestor and, on success, makes the
// extracted text the current résumé. When a newer upload started meanwhile,
// the result of this one is dropped.
func (c *Controller) IngestResume(ctx context.Context, src ingest.Source) error {
	c.mu.Lock()
	c.ingestToken++
	token := c.ingestToken
	c.upload.FileName = src.File.Name
	c.upload.Error = ""
	c.mu.Unlock()

	stale := false
	err := c.ingestor.Accept(ctx, src, func(text string) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if token != c.ingestToken {
			stale = true
			return
		}
		c.resume = text
		c.upload.Content = text
	})

	fields := map[string]any{
		"page_id":    c.id,
		"source":     src.Kind.String(),
		"file_name":  src.File.Name,
		"media_type": src.File.MediaType,
		"size_bytes": len(src.File.Data),
	}
	if err != nil {
		c.mu.Lock()
		if token == c.ingestToken {
			c.upload.Error = ingest.UserMessage(err)
		}
		c.mu.Unlock()

		fields["err"] = err.Error()
		if errors.Is(err, ingest.ErrUnsupportedFileType) {
			metrics.IncResumeRejected()
			telemetry.Warn("resume.rejected", fields)
		} else {
			metrics.IncResumeExtractionFailed()
			telemetry.Error("resume.extraction_failed", fields)
		}
		return err
	}
	if stale {
		telemetry.Info("resume.stale_dropped", fields)
		return nil
	}

	metrics.IncResumeIngested()
	telemetry.Info("resume.ingested", fields)
	return nil
}

// FailUpload shows message for an upload that never reached the ingestor.
// The current résumé is kept and any pending ingestion result is dropped.
func (c *Controller) FailUpload(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ingestToken++
	c.upload.Error = message
	metrics.IncResumeRejected()
}

// ChangeJobDescription records the full current job description text.
func (c *Controller) ChangeJobDescription(text string) {
	c.ApplyJobDescription(0, text)
}

// ApplyJobDescription records text unless a change with a sequence number
// of at least seq was already applied. A zero seq is unordered and always
// applied. It reports whether text was kept.
func (c *Controller) ApplyJobDescription(seq uint64, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != 0 {
		if seq <= c.jobSeq {
			return false
		}
		c.jobSeq = seq
	}
	c.job.Change(text)
	return true
}

// CanGenerate reports whether the Generate action is enabled.
func (c *Controller) CanGenerate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canGenerateLocked()
}

func (c *Controller) formCompleteLocked() bool {
	return strings.TrimSpace(c.resume) != "" && strings.TrimSpace(c.jobText) != ""
}

func (c *Controller) canGenerateLocked() bool {
	return c.formCompleteLocked() && c.phase != PhaseGenerating
}

// Generate sends one request built from the current inputs and waits for it.
// The returned text is what the page now shows: the letter, the no-letter
// notice, or the failure message when err is non-nil.
func (c *Controller) Generate(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.phase == PhaseGenerating {
		c.mu.Unlock()
		return "", ErrInFlight
	}
	if !c.formCompleteLocked() {
		c.mu.Unlock()
		return "", ErrNotReady
	}
	c.genToken++
	token := c.genToken
	c.phase = PhaseGenerating
	c.view = nil
	req := generation.Request{
		ResumeContent:      c.resume,
		JobDescriptionText: c.jobText,
	}
	c.mu.Unlock()

	metrics.IncGenerationStarted()
	start := time.Now()
	text, err := c.callGenerator(ctx, token, req)
	elapsed := time.Since(start)
	metrics.ObserveGenerationDuration(elapsed)

	fields := map[string]any{
		"page_id":     c.id,
		"duration_ms": float64(elapsed.Microseconds()) / 1000.0,
		"resume_len":  len(req.ResumeContent),
		"job_len":     len(req.JobDescriptionText),
	}
	if err != nil {
		text = generation.FailureMessage
		metrics.IncGenerationFailed()
		fields["err"] = err.Error()
		telemetry.Error("generation.failed", fields)
	} else {
		metrics.IncGenerationCompleted()
		telemetry.Info("generation.completed", fields)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.genToken {
		telemetry.Warn("generation.stale_dropped", fields)
		return text, err
	}
	c.phase = PhaseDone
	c.view = letter.New(text)
	return text, err
}

// callGenerator runs the generator. If it panics, the failure message is
// shown and the trigger is re-enabled before the panic continues upward.
func (c *Controller) callGenerator(ctx context.Context, token uint64, req generation.Request) (string, error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		c.mu.Lock()
		if token == c.genToken {
			c.phase = PhaseDone
			c.view = letter.New(generation.FailureMessage)
		}
		c.mu.Unlock()
		metrics.IncGenerationFailed()
		telemetry.Error("generation.panic", map[string]any{"page_id": c.id, "panic": fmt.Sprint(rec)})
		panic(rec)
	}()
	return c.gen.Generate(ctx, req)
}

// EditLetter switches the letter to edit mode.
func (c *Controller) EditLetter() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return ErrNoLetter
	}
	c.view.Edit()
	return nil
}

// SaveLetter commits an edited letter and returns to read mode.
func (c *Controller) SaveLetter(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return ErrNoLetter
	}
	c.view.Save(text)
	return nil
}

// CopyLetter writes the current letter to cb.
func (c *Controller) CopyLetter(cb letter.Clipboard) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return ErrNoLetter
	}
	return c.view.Copy(cb)
}

// DownloadLetter returns the current letter as a plain-text file.
func (c *Controller) DownloadLetter() (letter.Export, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return letter.Export{}, ErrNoLetter
	}
	return c.view.Download()
}

// Snapshot returns a copy of the state needed to render the page.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Upload:              c.upload,
		ResumeText:          c.resume,
		JobDescription:      c.job.Text(),
		JobDescriptionChars: c.job.Count(),
		JobSeq:              c.jobSeq,
		Phase:               c.phase,
		Generating:          c.phase == PhaseGenerating,
		CanGenerate:         c.canGenerateLocked(),
	}
	if c.view != nil {
		s.HasLetter = true
		s.Letter = c.view.Text()
		s.LetterMode = c.view.Mode()
	}
	return s
}
