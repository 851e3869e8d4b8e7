package instagram

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"reelscope/internal/media"
)

// og:description looks like
// `1,234 likes, 56 comments - someone on March 1, 2024: "caption".`
var descriptionPattern = regexp.MustCompile(`^([\d.,]+[KkMm]?) likes?, [\d.,]+[KkMm]? comments? - ([A-Za-z0-9._]+) on [^:]+: [“"](.*)[”"]\.?$`)

// og:title looks like `Name on Instagram: "caption"`.
var titleOwnerPattern = regexp.MustCompile(`\(@([A-Za-z0-9._]+)\)`)

func parseMetadata(doc *goquery.Document, shortcode, fallbackURL string) media.PostMetadata {
	meta := media.PostMetadata{Shortcode: shortcode, URL: fallbackURL, MediaType: "image"}
	og := func(property string) string {
		value, _ := doc.Find(`meta[property="` + property + `"]`).First().Attr("content")
		return strings.TrimSpace(value)
	}

	meta.Title = og("og:title")
	if u := og("og:url"); u != "" {
		meta.URL = u
	}
	ogType := strings.ToLower(og("og:type"))
	if strings.HasPrefix(ogType, "video") || og("og:video") != "" {
		meta.IsVideo = true
		meta.MediaType = "reel"
	}

	description := og("og:description")
	if m := descriptionPattern.FindStringSubmatch(description); m != nil {
		meta.LikeCount = parseCount(m[1])
		meta.Owner = m[2]
		meta.Caption = strings.TrimSpace(m[3])
	} else {
		meta.Caption = description
	}
	if meta.Owner == "" {
		if m := titleOwnerPattern.FindStringSubmatch(meta.Title); m != nil {
			meta.Owner = m[1]
		}
	}
	return meta
}

// parseCount reads "1,234", "12.5K" or "3M".
func parseCount(raw string) int {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	mult := 1.0
	switch {
	case strings.HasSuffix(strings.ToUpper(raw), "K"):
		mult = 1_000
		raw = raw[:len(raw)-1]
	case strings.HasSuffix(strings.ToUpper(raw), "M"):
		mult = 1_000_000
		raw = raw[:len(raw)-1]
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return int(v * mult)
}
