// Package platform classifies social media URLs.
package platform

import (
	"net/url"
	"regexp"
	"strings"
)

// Platform identifies the social network a URL belongs to.
type Platform string

const (
	Instagram Platform = "instagram"
	Twitter   Platform = "twitter"
	Threads   Platform = "threads"
	YouTube   Platform = "youtube"
	TikTok    Platform = "tiktok"
	Facebook  Platform = "facebook"
	Reddit    Platform = "reddit"
	// Other is the explicit result for hosts missing from the table.
	Other Platform = "other"
)

type hostRule struct {
	platform Platform
	domains  []string
}

// Order matters only for readability; domains do not overlap.
var hostTable = []hostRule{
	{Instagram, []string{"instagram.com", "instagr.am"}},
	{Twitter, []string{"twitter.com", "x.com"}},
	{Threads, []string{"threads.net", "threads.com"}},
	{YouTube, []string{"youtube.com", "youtu.be"}},
	{TikTok, []string{"tiktok.com"}},
	{Facebook, []string{"facebook.com", "fb.watch"}},
	{Reddit, []string{"reddit.com", "redd.it"}},
}

var shortcodePattern = regexp.MustCompile(`instagram\.com/(?:reel|reels|p|tv)/([A-Za-z0-9_-]+)`)

// String returns the lower-case platform name.
func (p Platform) String() string { return string(p) }

// CommentEligible reports whether the comment fetch and analysis branch runs
// for this platform.
func (p Platform) CommentEligible() bool { return p == Instagram }

// CleanURL trims whitespace and adds an https scheme when none is present.
func CleanURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		trimmed = "https://" + trimmed
	}
	return trimmed
}

// Detect classifies rawURL by host. The host must equal a table domain or be a
// subdomain of one, so "dropbox.com" never matches "x.com".
func Detect(rawURL string) Platform {
	host := hostname(rawURL)
	if host == "" {
		return Other
	}
	for _, rule := range hostTable {
		for _, domain := range rule.domains {
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return rule.platform
			}
		}
	}
	return Other
}

// InstagramShortcode extracts the post shortcode from a reel, post or tv URL.
func InstagramShortcode(rawURL string) (string, bool) {
	match := shortcodePattern.FindStringSubmatch(rawURL)
	if len(match) < 2 || match[1] == "" {
		return "", false
	}
	return match[1], true
}

func hostname(rawURL string) string {
	parsed, err := url.Parse(CleanURL(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(strings.ToLower(parsed.Hostname()), ".")
}
