package submission

import "strings"

const (
	titleExcerptRunes = 50
	imageOnlyBody     = "[Image Post]"
)

// ResolveTitle never returns an empty string: it falls back to a prefix of
// body, then a prefix of alt, then placeholder.
func ResolveTitle(title, body, alt, placeholder string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	if b := strings.TrimSpace(body); b != "" {
		return excerpt(b, titleExcerptRunes)
	}
	if a := strings.TrimSpace(alt); a != "" {
		return excerpt(a, titleExcerptRunes)
	}
	if placeholder == "" {
		return "Untitled"
	}
	return placeholder
}

// ResolveBody picks the text stored as the record body.
func ResolveBody(body, alt string) string {
	if b := strings.TrimSpace(body); b != "" {
		return b
	}
	if a := strings.TrimSpace(alt); a != "" {
		return a
	}
	return imageOnlyBody
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
