// Package address parses mail From headers into normalized email
// addresses and domains. Root-domain reduction groups subdomain senders
// (a.mercadopago.com, b.mercadopago.com) under the organizational domain
// for rule matching and sender analysis.
package address

import (
	"regexp"
	"strings"
)

var (
	bracketRe = regexp.MustCompile(`<([^>]+)>`)
	emailRe   = regexp.MustCompile(`[\w.\-+]+@[\w.\-]+\.\w+`)
)

// compoundTLDs are second-level suffixes under which registrations happen
// one label deeper than usual, so the root domain keeps three labels.
var compoundTLDs = map[string]struct{}{
	"co.uk":  {},
	"com.br": {},
	"com.au": {},
	"co.jp":  {},
	"com.mx": {},
	"com.ar": {},
	"com.sg": {},
	"co.in":  {},
	"co.nz":  {},
	"com.hk": {},
	"com.tw": {},
	"co.za":  {},
	"com.tr": {},
	"co.kr":  {},
	"com.cn": {},
	"com.my": {},
	"com.ph": {},
	"com.vn": {},
	"com.eg": {},
	"com.sa": {},
	"com.pk": {},
	"com.bd": {},
	"com.co": {},
	"com.pe": {},
	"com.ve": {},
}

// ExtractEmail resolves a From header to a lower-cased email address.
// The bracketed form ("Name <user@host>") wins; otherwise the first
// bare address in the header; otherwise the trimmed header itself.
func ExtractEmail(from string) string {
	if m := bracketRe.FindStringSubmatch(from); m != nil {
		return strings.ToLower(strings.TrimSpace(m[1]))
	}
	if m := emailRe.FindString(from); m != "" {
		return strings.ToLower(m)
	}
	return strings.ToLower(strings.TrimSpace(from))
}

// ExtractDomain returns the domain of the address in a From header,
// optionally reduced to its root domain. It returns "" when no valid
// domain (at least one dot) can be found.
func ExtractDomain(from string, useRoot bool) string {
	email := ExtractEmail(from)
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}

	domain := strings.TrimFunc(email[at+1:], func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return false
		case r == '.' || r == '_' || r == '-':
			return false
		}
		return true
	})
	if !strings.Contains(domain, ".") {
		return ""
	}
	if useRoot {
		return RootDomain(domain)
	}
	return domain
}

// RootDomain reduces a domain to its registrable root: the last two
// labels, or the last three when the suffix is a known compound TLD.
// Domains with fewer than two labels pass through unchanged.
func RootDomain(domain string) string {
	domain = strings.ToLower(strings.Trim(domain, "."))
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return domain
	}

	suffix := strings.Join(labels[len(labels)-2:], ".")
	if _, ok := compoundTLDs[suffix]; ok {
		if len(labels) >= 3 {
			return strings.Join(labels[len(labels)-3:], ".")
		}
		return domain
	}
	return suffix
}
