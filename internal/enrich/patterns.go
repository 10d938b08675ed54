package enrich

import (
	"regexp"
	"strings"

	"github.com/smc1992/leadgen-ai/internal/model"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// Placeholder domains that show up in page templates and must never be
// treated as contact addresses.
var deniedEmailDomains = []string{
	"example.com", "example.org", "example.net",
	"domain.com", "yourdomain.com", "email.com",
	"sentry.io", "wixpress.com",
}

// Permissive phone matcher: an optional leading +, then at least eight
// digits with common separators in between.
var phonePattern = regexp.MustCompile(`\+?\d[\d\s\-()./]{6,}\d`)

// socialPatterns maps platform tags to profile-URL matchers.
var socialPatterns = map[string]*regexp.Regexp{
	"facebook":  regexp.MustCompile(`https?://(?:www\.)?facebook\.com/[A-Za-z0-9_.\-/]+`),
	"instagram": regexp.MustCompile(`https?://(?:www\.)?instagram\.com/[A-Za-z0-9_.\-/]+`),
	"linkedin":  regexp.MustCompile(`https?://(?:[a-z]{2,3}\.)?linkedin\.com/(?:company|in)/[A-Za-z0-9_.\-/%]+`),
	"twitter":   regexp.MustCompile(`https?://(?:www\.)?(?:twitter|x)\.com/[A-Za-z0-9_]+`),
	"youtube":   regexp.MustCompile(`https?://(?:www\.)?youtube\.com/[A-Za-z0-9_.\-/@]+`),
	"xing":      regexp.MustCompile(`https?://(?:www\.)?xing\.com/[A-Za-z0-9_.\-/]+`),
}

const maxMatchesPerPlatform = 5

// ExtractEmails returns the distinct email addresses found in html,
// excluding placeholder domains.
func ExtractEmails(html string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range emailPattern.FindAllString(html, -1) {
		addr := strings.ToLower(m)
		if seen[addr] || deniedDomain(addr) {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out
}

func deniedDomain(addr string) bool {
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return true
	}
	domain := addr[at+1:]
	for _, d := range deniedEmailDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

// ExtractPhones returns the distinct phone-number candidates found in html.
func ExtractPhones(html string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range phonePattern.FindAllString(html, -1) {
		p := strings.TrimSpace(m)
		// Require enough digits to be a dialable number, not a year range.
		if digitCount(p) < 8 {
			continue
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// ExtractSocials returns social profile links found in html, capped per
// platform.
func ExtractSocials(html string) []model.SocialProfile {
	var out []model.SocialProfile
	for platform, re := range socialPatterns {
		seen := make(map[string]bool)
		for _, m := range re.FindAllString(html, -1) {
			u := strings.TrimRight(m, "/")
			if seen[u] {
				continue
			}
			seen[u] = true
			out = append(out, model.SocialProfile{Type: platform, URL: u})
			if len(seen) >= maxMatchesPerPlatform {
				break
			}
		}
	}
	return out
}
