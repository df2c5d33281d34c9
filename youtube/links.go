package youtube

import "strings"

// linkDomains are the puzzle hosts whose links are extracted from descriptions.
var linkDomains = []string{
	"sudokupad.app",
	"crackingthecryptic.com",
	"cracking-the-cryptic.web.app",
}

// ExtractLinks returns, in order, every whitespace-separated token of
// description that starts with "http" and mentions a puzzle host.
// The result is never nil.
func ExtractLinks(description string) []string {
	links := []string{}
	for _, token := range strings.Fields(description) {
		if !strings.HasPrefix(token, "http") {
			continue
		}
		for _, domain := range linkDomains {
			if strings.Contains(token, domain) {
				links = append(links, token)
				break
			}
		}
	}
	return links
}
