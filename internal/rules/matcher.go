package rules

import (
	"strings"

	"github.com/emailzen/emailzen/internal/address"
)

// MessageHeaders is the header view the matcher needs.
type MessageHeaders struct {
	From    string
	Subject string
}

// Matches reports whether a message satisfies a rule. Inactive rules
// never match. When both condition types are present, both must pass;
// within a condition any one entry suffices.
func Matches(msg MessageHeaders, rule Rule) bool {
	if !rule.Active {
		return false
	}

	if len(rule.Conditions.Senders) > 0 {
		if !matchesSender(msg.From, rule.Conditions.Senders) {
			return false
		}
	}

	if len(rule.Conditions.Subjects) > 0 {
		subject := strings.ToLower(msg.Subject)
		matched := false
		for _, keyword := range rule.Conditions.Subjects {
			if keyword != "" && strings.Contains(subject, strings.ToLower(keyword)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

func matchesSender(from string, entries []string) bool {
	email := address.ExtractEmail(from)
	domain := address.ExtractDomain(from, false)
	root := address.ExtractDomain(from, true)
	fromLower := strings.ToLower(from)

	for _, entry := range entries {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if strings.HasPrefix(entry, "@") {
			if matchesDomainEntry(strings.TrimPrefix(entry, "@"), domain, root, fromLower) {
				return true
			}
			continue
		}
		// Plain entries compare as exact email, exact domain, exact root
		// domain, then raw containment as a last resort.
		if entry == email || entry == domain || entry == root || strings.Contains(fromLower, entry) {
			return true
		}
	}
	return false
}

// matchesDomainEntry handles "@example.com"-style entries. Suffix checks
// run in both directions so "@mail.example.com" still catches a rule
// written against the organizational domain and vice versa.
func matchesDomainEntry(want, domain, root, fromLower string) bool {
	if want == "" {
		return false
	}
	if want == domain || want == root {
		return true
	}
	if domain != "" && (strings.HasSuffix(domain, "."+want) || strings.HasSuffix(want, "."+domain)) {
		return true
	}
	if root != "" && strings.HasSuffix(want, "."+root) {
		return true
	}
	return strings.Contains(fromLower, "@"+want)
}
