package scanning

import (
	"regexp"
	"strings"
)

var (
	reURLScheme = regexp.MustCompile(`(?i)\bhttps?://[a-z0-9][a-z0-9.-]*\.[a-z]{2,}(?:/[^\s]*)?`)
	reURLWWW    = regexp.MustCompile(`(?i)\bwww\.[a-z0-9-]+(?:\.[a-z0-9-]+)*\.[a-z]{2,}(?:/[^\s]*)?`)
	reURLBare   = regexp.MustCompile(`(?i)\b[a-z0-9][a-z0-9-]*(?:\.[a-z0-9-]+)*\.(?:com|net|org|us|biz|info|co|io|menu|restaurant|pizza|cafe|bar)\b(?:/[^\s]*)?`)
)

// extractWebsite scans the first 20 lines for a URL.
func extractWebsite(lines []string) string {
	for _, l := range firstN(lines, 20) {
		if m := reURLScheme.FindString(l); m != "" {
			return normalizeWebsite(m)
		}
		if m := reURLWWW.FindString(l); m != "" {
			return normalizeWebsite(m)
		}
		if strings.Contains(l, "@") {
			continue
		}
		if m := reURLBare.FindString(l); m != "" {
			return normalizeWebsite(m)
		}
	}
	return ""
}

// normalizeWebsite lowercases a URL and forces an https:// scheme.
func normalizeWebsite(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".,;:)]!")
	if s == "" {
		return ""
	}
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	return "https://" + s
}
