// Package validate holds the shared input checks applied before any network
// call is issued. Failures here never reach the wire.
package validate

import (
	"regexp"
	"strings"
)

var (
	emailRe  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe  = regexp.MustCompile(`^\+\d{8,15}$`)
	codeRe   = regexp.MustCompile(`^\d{6}$`)
	dniRe    = regexp.MustCompile(`^\d{8}$`)
	digitRe  = regexp.MustCompile(`\D`)
	expiryRe = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
)

// Email reports whether v looks like an email address.
func Email(v string) bool { return emailRe.MatchString(v) }

// PhoneE164 reports whether v is an E.164 phone number.
func PhoneE164(v string) bool { return phoneRe.MatchString(v) }

// Password reports whether v satisfies the minimum password policy.
func Password(v string) bool { return len(v) >= 8 }

// Code6 reports whether v is exactly six digits.
func Code6(v string) bool { return codeRe.MatchString(v) }

// DNI reports whether v is an eight digit national document number.
func DNI(v string) bool { return dniRe.MatchString(v) }

// Digits strips everything except decimal digits from v.
func Digits(v string) string { return digitRe.ReplaceAllString(strings.TrimSpace(v), "") }

// CardExpiry reports whether v is an MM/YY card expiry.
func CardExpiry(v string) bool { return expiryRe.MatchString(strings.TrimSpace(v)) }
