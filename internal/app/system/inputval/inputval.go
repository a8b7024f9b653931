// Package inputval validates form input.
package inputval

import (
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// IsValidEmail performs a strict structural check of an address of the form
// local@domain. Display-name forms are rejected.
func IsValidEmail(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n<>") {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	local, domain := s[:at], s[at+1:]
	if strings.Contains(local, "@") {
		return false
	}
	return validDotted(local) && validDotted(domain)
}

func validDotted(s string) bool {
	if s == "" || s[0] == '.' || s[len(s)-1] == '.' {
		return false
	}
	return !strings.Contains(s, "..")
}

// IsValidHTTPURL reports whether s is an absolute http or https URL.
func IsValidHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ParsePrice parses a non-negative price.
func ParsePrice(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// MaxLen reports whether s is at most n characters (runes) long.
func MaxLen(s string, n int) bool {
	return utf8.RuneCountInString(s) <= n
}

// FieldError is a validation failure for one form field.
type FieldError struct {
	Field   string
	Message string
}

// Result collects field errors.
type Result struct {
	Errors []FieldError
}

// Add records a failure for field.
func (r *Result) Add(field, message string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: message})
}

// Check records message for field when ok is false.
func (r *Result) Check(ok bool, field, message string) {
	if !ok {
		r.Add(field, message)
	}
}

// HasErrors reports whether any failure was recorded.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}
