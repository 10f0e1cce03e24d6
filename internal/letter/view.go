package letter

import "errors"

// DownloadFileName is the name of the exported plain-text file.
const DownloadFileName = "Cover_Letter.txt"

// ErrEditing is returned by read-mode actions while the view is in edit mode.
var ErrEditing = errors.New("letter is being edited")

// Mode is one of the two display states of a letter.
type Mode int

const (
	ModeRead Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "read"
}

// Clipboard receives copied text. github.com/atotto/clipboard satisfies it
// through an adapter in the CLI; the web handler writes to the response.
type Clipboard interface {
	WriteAll(text string) error
}

// Export is a downloadable rendition of the letter.
type Export struct {
	FileName    string
	ContentType string
	Body        []byte
}

// View holds the current letter text and its display mode.
type View struct {
	text string
	mode Mode
}

// New returns a read-mode view of text.
func New(text string) *View {
	return &View{text: text, mode: ModeRead}
}

// Text returns the current, possibly edited, letter.
func (v *View) Text() string {
	return v.text
}

// Mode returns the display mode.
func (v *View) Mode() Mode {
	return v.mode
}

// Edit switches to edit mode. The editable field starts with the current text.
func (v *View) Edit() {
	v.mode = ModeEdit
}

// Save commits text verbatim, including an empty string, and returns to read mode.
func (v *View) Save(text string) {
	v.text = text
	v.mode = ModeRead
}

// Copy writes the exact current text to cb.
func (v *View) Copy(cb Clipboard) error {
	if v.mode != ModeRead {
		return ErrEditing
	}
	return cb.WriteAll(v.text)
}

// Download serializes the exact current text as Cover_Letter.txt.
func (v *View) Download() (Export, error) {
	if v.mode != ModeRead {
		return Export{}, ErrEditing
	}
	return Export{
		FileName:    DownloadFileName,
		ContentType: "text/plain; charset=utf-8",
		Body:        []byte(v.text),
	}, nil
}
