package sanitize

import "regexp"

// Plain email addresses (case-insensitive)
var reEmail = regexp.MustCompile(`(?i)[A-Z0-9._%+\-]+@[A-Z0-9.\-]+\.[A-Z]{2,}`)

// Common phone shapes: +52 55..., (55) 1234-5678, 5512345678, etc.
// Only digits, spaces, minus, dot, parens and plus are allowed; at least
// 9 digits total so we do not fire on amounts or dates.
var rePhone = regexp.MustCompile(`\+?\d[\d\s\-.()]{7,}\d`)

// RedactPII strips contact details from free text before it is shown to
// lawyers browsing the public pool. Direct contact outside the platform
// bypasses the intake flow.
func RedactPII(s string) string {
	if s == "" {
		return s
	}
	s = reEmail.ReplaceAllString(s, "[correo oculto]")
	s = rePhone.ReplaceAllString(s, "[teléfono oculto]")
	return s
}

// Summary cuts a description down for pool listings, breaking on a space
// when possible.
func Summary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	i := max
	for i > 0 && i < len(s) && s[i] != ' ' {
		i--
	}
	if i <= 0 {
		i = max
	}
	return s[:i] + "…"
}
