package domain

// Email is a single parsed message from the corporate email dump.
// SourceLine is the approximate line offset of the message block in
// the dump file, used for citation.
type Email struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Date       string `json:"date"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	SourceLine int    `json:"source_line"`
}

// Tag keys carried on email corpus chunks.
const (
	TagFrom    = "from"
	TagTo      = "to"
	TagDate    = "date"
	TagSubject = "subject"
	TagLine    = "line"
)
