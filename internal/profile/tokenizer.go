package profile

import "strings"

// Tokenizer splits a delimited string into fields one call at a time.
//
// The cursor persists between calls: Next keeps consuming the string last
// supplied to NewTokenizer or Reset. Empty fields and reads past the end are
// reported as absent (ok == false). A Tokenizer is owned by one caller and is
// not safe for concurrent use.
type Tokenizer struct {
	src       string
	off       int
	sep       string
	exhausted bool
}

// NewTokenizer returns a tokenizer positioned at the start of src.
func NewTokenizer(src string, sep byte) *Tokenizer {
	t := &Tokenizer{sep: string(sep)}
	t.Reset(src)
	return t
}

// Reset replaces the source string and rewinds the cursor.
func (t *Tokenizer) Reset(src string) {
	t.src = src
	t.off = 0
	t.exhausted = false
}

// Next returns the next field. ok is false when the field is empty or the
// source has been fully consumed.
func (t *Tokenizer) Next() (field string, ok bool) {
	if t.exhausted {
		return "", false
	}

	rest := t.src[t.off:]
	if i := strings.Index(rest, t.sep); i >= 0 {
		field = rest[:i]
		t.off += i + len(t.sep)
	} else {
		field = rest
		t.exhausted = true
	}

	return field, field != ""
}
