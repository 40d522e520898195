package input

import "strings"

// invisibleChars are stripped from header names and entry ids. Spreadsheet
// exports and copy-pasted ids carry them without any visible difference.
var invisibleChars = strings.NewReplacer(
	"\u200B", "", // Zero-width space
	"\u200C", "", // Zero-width non-joiner
	"\u200D", "", // Zero-width joiner
	"\uFEFF", "", // Zero-width no-break space (BOM)
	"\u00AD", "", // Soft hyphen
	"\u2060", "", // Word joiner
	"\u180E", "", // Mongolian vowel separator
)

// sanitizeName removes invisible characters and surrounding whitespace.
// Field values are left alone: joiners are meaningful inside text and emoji.
func sanitizeName(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(invisibleChars.Replace(s))
}
