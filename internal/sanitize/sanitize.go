// Package sanitize strips markup from user-supplied text before it is stored
// or compared. Confessions and comments go through the same pipeline.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	scriptBlocks  = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	styleBlocks   = regexp.MustCompile(`(?is)<style\b.*?</style>`)
	jsURIs        = regexp.MustCompile(`(?i)javascript:`)
	eventHandlers = regexp.MustCompile(`(?i)on\w+="[^"]*"`)
	anyTag        = regexp.MustCompile(`<[^>]*>`)
	hashtags      = regexp.MustCompile(`#[A-Za-z0-9_]+`)
)

// Clean removes script/style blocks, javascript: URIs, inline event-handler
// attributes and any remaining markup, then trims whitespace.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	s := scriptBlocks.ReplaceAllString(text, "")
	s = styleBlocks.ReplaceAllString(s, "")
	s = jsURIs.ReplaceAllString(s, "")
	s = eventHandlers.ReplaceAllString(s, "")
	s = anyTag.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Hashtags returns every #tag in the text, in order of appearance, including
// duplicates.
func Hashtags(text string) []string {
	return hashtags.FindAllString(text, -1)
}
