package envfile

import "strings"

// Sanitize cleans a merged document line by line:
//
//   - blank lines are dropped;
//   - a line containing "=" loses its inline comment and trailing
//     whitespace, and is dropped entirely if stripping removed the
//     assignment itself;
//   - a line without "=" is kept verbatim minus trailing whitespace.
//
// A "#" inside a quoted value is not distinguished from a comment marker and
// truncates the value. Sanitize is idempotent.
func Sanitize(doc Document) Document {
	out := make(Document, 0, len(doc))
	for _, line := range doc {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.Contains(line, "=") {
			cleaned := trimTrailing(stripInlineComment(line))
			if !strings.Contains(cleaned, "=") {
				continue
			}
			out = append(out, cleaned)
			continue
		}
		out = append(out, trimTrailing(line))
	}
	return out
}

// stripInlineComment cuts the line at the first "#" that starts the line or
// follows a space or tab.
func stripInlineComment(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] != '#' {
			continue
		}
		if i == 0 || line[i-1] == ' ' || line[i-1] == '\t' {
			return line[:i]
		}
	}
	return line
}

func trimTrailing(line string) string {
	return strings.TrimRight(line, " \t\r")
}
