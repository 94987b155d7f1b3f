package chunking

import (
	"regexp"
	"strings"
)

// noiseRe matches Constitutional Court decision and amending-law citations
// that the official publication interleaves with article text.
var noiseRe = regexp.MustCompile(
	`(?s)(საქართველოს\s+საკონსტიტუციო\s+სასამართლოს\s+\d{4}\s+წლის\s+\d{1,2}\s+[ა-ჰ]+\s+გადაწყვეტილება\s+№[\d/,]+\s*–?\s*-?\s*(?:სსმ|ვებგვერდი).*?(?:\n|$))` +
		`|` +
		`(საქართველოს\s+\d{4}\s+წლის\s*\d{1,2}\s+[ა-ჰ]+\s+კანონი\s+№\d+\s*–?\s*-?\s*(?:სსმ|ვებგვერდი).*?(?:\n|$))`,
)

// CleanParagraphs strips citation noise from each paragraph. The final
// paragraph is the publication footer and is always blanked.
func CleanParagraphs(paragraphs []string) []string {
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if noiseRe.MatchString(p) {
			p = strings.TrimSpace(noiseRe.ReplaceAllString(p, ""))
		}
		out = append(out, p)
	}
	if len(out) > 0 {
		out[len(out)-1] = ""
	}
	return out
}
