package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"coverletter-backend/internal/ingest"
	"coverletter-backend/internal/letter"
	"coverletter-backend/internal/page"
	"coverletter-backend/internal/shared/server/middleware"
	"coverletter-backend/internal/shared/server/respond"
	"coverletter-backend/internal/shared/util"
)

const defaultMaxUploadBytes = 10 << 20 // 10MB

// Handler serves the single page and its form actions.
type Handler struct {
	MaxUploadBytes int64
}

// NewHandler constructs a Handler. A non-positive limit uses 10MB.
func NewHandler(maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches page routes. The group must run the Session middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/", h.index)
	rg.POST("/resume", h.uploadResume)
	rg.POST("/job-description", h.changeJobDescription)
	rg.POST("/generate", h.generate)
	rg.POST("/letter/edit", h.editLetter)
	rg.POST("/letter/save", h.saveLetter)
	rg.GET("/letter/copy", h.copyLetter)
	rg.GET("/letter/download", h.downloadLetter)
}

func (h *Handler) index(c *gin.Context) {
	pg := pageOrAbort(c)
	if pg == nil {
		return
	}
	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, "index.html", pg.Snapshot())
}

func (h *Handler) uploadResume(c *gin.Context) {
	pg := pageOrAbort(c)
	if pg == nil {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			msg := fmt.Sprintf("File is too large. The limit is %s.", formatBytes(h.MaxUploadBytes))
			uploadError(c, pg, http.StatusRequestEntityTooLarge, "too_large", msg, gin.H{"maxBytes": h.MaxUploadBytes})
			return
		}
		uploadError(c, pg, http.StatusBadRequest, "validation_error", "Please choose a file to upload.", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	uploaded := ingest.UploadedFile{
		Name:      util.CleanFileName(fileHeader.Filename),
		MediaType: fileHeader.Header.Get("Content-Type"),
		Data:      data,
	}
	src := ingest.Source{Kind: ingest.ParseSourceKind(c.PostForm("source")), File: uploaded}

	// Rejections and parse failures are shown on the page, not as HTTP errors.
	_ = pg.IngestResume(c.Request.Context(), src)
	c.Redirect(http.StatusSeeOther, "/")
}

// Seq orders changes sent by the page script; older ones are ignored.
type jobDescriptionRequest struct {
	JobDescription string `form:"jobDescription" json:"jobDescription"`
	Seq            uint64 `form:"seq" json:"seq"`
}

func (h *Handler) changeJobDescription(c *gin.Context) {
	pg := pageOrAbort(c)
	if pg == nil {
		return
	}
	var req jobDescriptionRequest
	if err := c.ShouldBind(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	pg.ApplyJobDescription(req.Seq, normalizeNewlines(req.JobDescription))

	if c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	snap := pg.Snapshot()
	respond.OK(c, gin.H{
		"characters":  snap.JobDescriptionChars,
		"canGenerate": snap.CanGenerate,
		"seq":         snap.JobSeq,
	})
}

func (h *Handler) generate(c *gin.Context) {
	pg := pageOrAbort(c)
	if pg == nil {
		return
	}
	// The form carries the textarea as submitted so a lagging change cannot win.
	if text, ok := c.GetPostForm("jobDescription"); ok {
		seq, _ := strconv.ParseUint(c.PostForm("seq"), 10, 64)
		pg.ApplyJobDescription(seq, normalizeNewlines(text))
	}
	from := pg.Snapshot().Phase

	// The outbound call outlives a closed browser tab; its result is kept for the next render.
	_, err := pg.Generate(context.WithoutCancel(c.Request.Context()))
	switch {
	case errors.Is(err, page.ErrInFlight):
		respond.Error(c, http.StatusConflict, "in_flight", "a cover letter is already being generated", nil)
		return
	case errors.Is(err, page.ErrNotReady):
		respond.Error(c, http.StatusConflict, "not_ready", "upload a resume and paste a job description first", nil)
		return
	}
	c.Set(middleware.PhaseKey, fmt.Sprintf("%s->%s->%s", from, page.PhaseGenerating, pg.Snapshot().Phase))
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) editLetter(c *gin.Context) {
	pg := pageOrAbort(c)
	if pg == nil {
		return
	}
	if err := pg.EditLetter(); err != nil {
		letterError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) saveLetter(c *gin.Context) {
	pg := pageOrAbort(c)
	if pg == nil {
		return
	}
	text := normalizeNewlines(c.PostForm("letter"))
	if err := pg.SaveLetter(text); err != nil {
		letterError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) copyLetter(c *gin.Context) {
	pg := pageOrAbort(c)
	if pg == nil {
		return
	}
	var cb responseClipboard
	if err := pg.CopyLetter(&cb); err != nil {
		letterError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	respond.Text(c, http.StatusOK, cb.text)
}

func (h *Handler) downloadLetter(c *gin.Context) {
	pg := pageOrAbort(c)
	if pg == nil {
		return
	}
	export, err := pg.DownloadLetter()
	if err != nil {
		letterError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	c.Data(http.StatusOK, export.ContentType, export.Body)
}

// responseClipboard captures copied text so it can be written to the response;
// the page script puts it on the browser clipboard.
type responseClipboard struct {
	text string
}

func (r *responseClipboard) WriteAll(text string) error {
	r.text = text
	return nil
}

func letterError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, page.ErrNoLetter):
		respond.Error(c, http.StatusNotFound, "not_found", "no cover letter yet", nil)
	case errors.Is(err, letter.ErrEditing):
		respond.Error(c, http.StatusConflict, "editing", "save the letter before exporting it", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "letter action failed", nil)
	}
}

func pageOrAbort(c *gin.Context) *page.Controller {
	pg := middleware.PageFromContext(c)
	if pg == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "session unavailable", nil)
	}
	return pg
}

// normalizeNewlines undoes the CRLF line breaks of form submissions.
func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	// multipart parsing does not always wrap the reader error.
	return strings.Contains(err.Error(), "request body too large")
}

// uploadError records message on the page so it survives the reload, then
// answers the script with the error envelope or a plain form post with a redirect.
func uploadError(c *gin.Context, pg *page.Controller, status int, code, message string, details any) {
	pg.FailUpload(message)
	if c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	respond.Error(c, status, code, message, details)
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
