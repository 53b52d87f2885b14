package voice

import "strings"

// NormalizeE164 returns "+digits", or "" when value holds no digits.
func NormalizeE164(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "+" + b.String()
}
