package jobdesc

import "unicode/utf8"

// Input holds the pasted job description and its character count.
type Input struct {
	text   string
	count  int
	notify func(string)
}

// New returns an empty Input that reports every change to notify.
func New(notify func(string)) *Input {
	return &Input{notify: notify}
}

// Change replaces the text and reports it upward. Any string is accepted.
func (in *Input) Change(text string) {
	in.text = text
	in.count = utf8.RuneCountInString(text)
	if in.notify != nil {
		in.notify(text)
	}
}

// Text returns the current job description.
func (in *Input) Text() string {
	return in.text
}

// Count returns the number of characters in the current text.
func (in *Input) Count() int {
	return in.count
}
