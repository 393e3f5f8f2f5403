package utils

import (
	"strings"
)

// TruncateString shortens s to maxLen bytes, appending an ellipsis when it
// had to cut.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// MaskEmail masks the user part of an email address, showing only the first
// and last character. "user@example.com" becomes "u**r@example.com".
// Local parts of two characters or fewer are masked entirely.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}

	user, domain := email[:at], email[at+1:]
	if len(user) <= 2 {
		return strings.Repeat("*", len(user)) + "@" + domain
	}

	return string(user[0]) + strings.Repeat("*", len(user)-2) + string(user[len(user)-1]) + "@" + domain
}

// MaskEmails applies MaskEmail to every address.
func MaskEmails(emails []string) []string {
	masked := make([]string, len(emails))
	for i, e := range emails {
		masked[i] = MaskEmail(e)
	}
	return masked
}
