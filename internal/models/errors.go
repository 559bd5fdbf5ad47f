package models

// ErrorKind is the closed set of extraction failure classes
type ErrorKind string

const (
	ErrorKindCaptcha          ErrorKind = "captcha"
	ErrorKindNotFound         ErrorKind = "not_found"
	ErrorKindAccessRestricted ErrorKind = "access_restricted"
	ErrorKindRateLimit        ErrorKind = "rate_limit"
	ErrorKindUnknown          ErrorKind = "unknown"
)

// Retryable reports whether another attempt against the same target can
// succeed. not_found and access_restricted are properties of the target,
// not transient conditions.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorKindNotFound, ErrorKindAccessRestricted:
		return false
	default:
		return true
	}
}
