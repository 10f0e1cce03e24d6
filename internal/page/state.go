package page

import "coverletter-backend/internal/letter"

// Phase is the request lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseGenerating
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseGenerating:
		return "generating"
	case PhaseDone:
		return "done"
	default:
		return "idle"
	}
}

// Upload is the upload panel's own state.
type Upload struct {
	FileName string
	Error    string
	Content  string
}

// Snapshot is a read-only copy of a Controller's state.
type Snapshot struct {
	Upload              Upload
	ResumeText          string
	JobDescription      string
	JobDescriptionChars int
	JobSeq              uint64
	Phase               Phase
	Generating          bool
	CanGenerate         bool
	HasLetter           bool
	Letter              string
	LetterMode          letter.Mode
}

// Editing reports whether the letter is shown in an editable field.
func (s Snapshot) Editing() bool {
	return s.HasLetter && s.LetterMode == letter.ModeEdit
}
