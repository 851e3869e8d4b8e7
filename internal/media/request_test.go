package media_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"reelscope/internal/media"
	"reelscope/internal/platform"
	"reelscope/internal/services"
)

func ptr[T any](v T) *T { return &v }

var defaults = media.RequestDefaults{ModelSize: "base", MaxComments: 200}

func TestNewRequestAppliesDefaults(t *testing.T) {
	req, err := media.NewRequest(media.RequestInput{URL: "  https://www.instagram.com/reel/ABC123/?igsh=xyz "}, defaults)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if req.Platform != platform.Instagram {
		t.Fatalf("expected instagram, got %s", req.Platform)
	}
	if req.ModelSize != "base" || req.MaxComments != 200 {
		t.Fatalf("defaults not applied: %+v", req)
	}
	if req.Credentials != nil || req.Language != "" || req.CookiesFile != "" {
		t.Fatalf("unexpected optional fields: %+v", req)
	}
}

func TestNewRequestOverrides(t *testing.T) {
	cookies := filepath.Join(t.TempDir(), "cookies.txt")
	if err := os.WriteFile(cookies, []byte("# Netscape HTTP Cookie File\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	req, err := media.NewRequest(media.RequestInput{
		URL:           "https://youtu.be/xyz",
		ModelSize:     "Small",
		Language:      ptr("english"),
		InstaUsername: ptr(" user "),
		InstaPassword: ptr("secret"),
		MaxComments:   ptr(25),
		CookiesFile:   ptr(cookies),
	}, defaults)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if req.ModelSize != "small" || req.Language != "en" || req.MaxComments != 25 {
		t.Fatalf("overrides not applied: %+v", req)
	}
	if req.Credentials == nil || req.Credentials.Username != "user" || req.Credentials.Password != "secret" {
		t.Fatalf("unexpected credentials: %+v", req.Credentials)
	}
	if req.CookiesFile != cookies {
		t.Fatalf("unexpected cookies file %q", req.CookiesFile)
	}
	if req.Platform != platform.YouTube {
		t.Fatalf("expected youtube, got %s", req.Platform)
	}
}

func TestNewRequestValidationErrors(t *testing.T) {
	cases := map[string]media.RequestInput{
		"empty url":        {URL: "   "},
		"bad model":        {URL: "https://x.com/a/status/1", ModelSize: "huge"},
		"negative max":     {URL: "https://x.com/a/status/1", MaxComments: ptr(-1)},
		"unknown language": {URL: "https://x.com/a/status/1", Language: ptr("klingonese")},
		"missing cookies":  {URL: "https://x.com/a/status/1", CookiesFile: ptr("/nonexistent/cookies.txt")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := media.NewRequest(in, defaults)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestNewRequestZeroMaxCommentsUsesDefault(t *testing.T) {
	req, err := media.NewRequest(media.RequestInput{URL: "https://instagram.com/p/X/", MaxComments: ptr(0)}, media.RequestDefaults{})
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if req.MaxComments != 200 || req.ModelSize != "base" {
		t.Fatalf("unexpected fallbacks: %+v", req)
	}
}
