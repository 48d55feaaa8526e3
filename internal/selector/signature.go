package selector

import (
	"regexp"
	"strings"
)

// HintExtractor derives a sender identity hint from a message body. It is a
// pluggable strategy so the heuristics can be swapped or disabled without
// touching the selection contract.
type HintExtractor interface {
	ExtractName(body string) string
}

// SignatureExtractor parses a trailing signature block such as
// "Best,\nJordan" and returns the name after the closing.
type SignatureExtractor struct{}

// Common sign-off closings followed by a name on the next line
var signaturePattern = regexp.MustCompile(`(?im)^\s*(?:best|best regards|kind regards|regards|warm regards|thanks|thank you|cheers|sincerely)\s*,?\s*\r?\n\s*([A-Za-z][A-Za-z .'-]{1,60})\s*$`)

// ExtractName returns the signer's name from the body's sign-off, or ""
// when no signature block is found
func (SignatureExtractor) ExtractName(body string) string {
	if body == "" {
		return ""
	}

	matches := signaturePattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return ""
	}

	// Use the last sign-off in the body; quoted history may contain earlier ones
	name := strings.TrimSpace(matches[len(matches)-1][1])
	return name
}

// NoopExtractor disables signature-based selection
type NoopExtractor struct{}

// ExtractName always returns ""
func (NoopExtractor) ExtractName(string) string { return "" }
