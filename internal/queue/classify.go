package queue

import (
	"strings"

	"prospector/internal/models"
)

// classifyTable is the single source of truth for mapping provider error
// messages to error kinds. Entries are checked in order; the first token
// found in the message wins.
var classifyTable = []struct {
	kind   models.ErrorKind
	tokens []string
}{
	{models.ErrorKindCaptcha, []string{"captcha", "challenge"}},
	{models.ErrorKindNotFound, []string{"not found", "404"}},
	{models.ErrorKindAccessRestricted, []string{"restricted", "403", "unauthorized"}},
	{models.ErrorKindRateLimit, []string{"rate limit", "429"}},
}

// Classify maps an error to one of the closed set of error kinds by
// case-insensitive substring match on its message
func Classify(err error) models.ErrorKind {
	if err == nil {
		return models.ErrorKindUnknown
	}
	msg := strings.ToLower(err.Error())
	for _, entry := range classifyTable {
		for _, token := range entry.tokens {
			if strings.Contains(msg, token) {
				return entry.kind
			}
		}
	}
	return models.ErrorKindUnknown
}
