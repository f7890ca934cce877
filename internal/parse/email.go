// Package parse turns raw corpus files into structured records.
// Parsing is pure and stateless; corpus repositories own caching.
package parse

import (
	"regexp"
	"strings"

	"github.com/scranton-labs/auditdex/internal/domain"
)

// The email dump is a sequence of fixed-field blocks separated by a
// long horizontal rule:
//
//	-------------------------------------------------------------------
//	From: name <addr>
//	To: name <addr>
//	Date: YYYY-MM-DD HH:MM
//	Subject: text
//	Message:
//	body...
var (
	emailSeparator = regexp.MustCompile(`(?m)^-{70,}\s*$`)
	fromPattern    = regexp.MustCompile(`(?i)^From:\s*(.+)$`)
	toPattern      = regexp.MustCompile(`(?i)^To:\s*(.+)$`)
	datePattern    = regexp.MustCompile(`(?i)^Date:\s*(.+)$`)
	subjectPattern = regexp.MustCompile(`(?i)^Subject:\s*(.+)$`)
	messagePattern = regexp.MustCompile(`(?i)^Message:\s*$`)
)

// Emails parses a full email dump. Blocks without both From and To
// (file headers, banners) are skipped. Each email records the
// approximate starting line of its block for citation.
func Emails(content string) []domain.Email {
	var emails []domain.Email
	line := 1

	prev := 0
	for _, loc := range append(emailSeparator.FindAllStringIndex(content, -1), []int{len(content), len(content)}) {
		block := content[prev:loc[0]]
		if e, ok := parseEmailBlock(block, line); ok {
			emails = append(emails, e)
		}
		line += strings.Count(content[prev:loc[1]], "\n")
		prev = loc[1]
	}

	return emails
}

func parseEmailBlock(block string, startLine int) (domain.Email, bool) {
	var e domain.Email
	var body []string
	inMessage := false

	for _, raw := range strings.Split(block, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case fromPattern.MatchString(line):
			e.From = fromPattern.FindStringSubmatch(line)[1]
			inMessage = false
		case toPattern.MatchString(line):
			e.To = toPattern.FindStringSubmatch(line)[1]
			inMessage = false
		case datePattern.MatchString(line):
			e.Date = datePattern.FindStringSubmatch(line)[1]
			inMessage = false
		case subjectPattern.MatchString(line):
			e.Subject = subjectPattern.FindStringSubmatch(line)[1]
			inMessage = false
		case messagePattern.MatchString(line):
			inMessage = true
		case inMessage:
			body = append(body, line)
		}
	}

	if e.From == "" || e.To == "" {
		return domain.Email{}, false
	}

	e.Body = strings.TrimSpace(strings.Join(body, "\n"))
	e.SourceLine = startLine
	return e, true
}

// RenderEmail formats an email the way it is indexed: headers followed
// by the body. The same rendering is used for embedding and for
// returning chunk text, so stored vectors match stored text.
func RenderEmail(e domain.Email) string {
	var b strings.Builder
	b.WriteString("From: " + e.From + "\n")
	b.WriteString("To: " + e.To + "\n")
	b.WriteString("Date: " + e.Date + "\n")
	b.WriteString("Subject: " + e.Subject + "\n\n")
	b.WriteString(e.Body)
	return b.String()
}
