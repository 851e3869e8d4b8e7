package platform

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		url  string
		want Platform
	}{
		{"https://www.instagram.com/reel/Cxyz123/", Instagram},
		{"instagr.am/p/abc", Instagram},
		{"https://twitter.com/user/status/1", Twitter},
		{"https://x.com/user/status/1", Twitter},
		{"https://www.threads.net/@user/post/1", Threads},
		{"https://youtube.com/watch?v=X", YouTube},
		{"https://m.youtube.com/watch?v=X", YouTube},
		{"https://youtu.be/X", YouTube},
		{"https://vm.tiktok.com/abc", TikTok},
		{"https://fb.watch/abc", Facebook},
		{"https://www.facebook.com/watch?v=1", Facebook},
		{"https://v.redd.it/abc", Reddit},
		{"https://old.reddit.com/r/x", Reddit},
		{"https://dropbox.com/s/video.mp4", Other},
		{"https://vimeo.com/1", Other},
		{"", Other},
		{"::not a url", Other},
	}
	for _, tt := range tests {
		if got := Detect(tt.url); got != tt.want {
			t.Errorf("Detect(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestCommentEligibleOnlyForInstagram(t *testing.T) {
	for _, p := range []Platform{Twitter, Threads, YouTube, TikTok, Facebook, Reddit, Other} {
		if p.CommentEligible() {
			t.Errorf("%s should not be comment eligible", p)
		}
	}
	if !Instagram.CommentEligible() {
		t.Error("instagram should be comment eligible")
	}
}

func TestInstagramShortcode(t *testing.T) {
	tests := []struct {
		url    string
		want   string
		wantOK bool
	}{
		{"https://www.instagram.com/reel/C1a2B3c4D5e/?igsh=abc", "C1a2B3c4D5e", true},
		{"https://instagram.com/reels/Abc_-9/", "Abc_-9", true},
		{"https://instagram.com/p/XYZ", "XYZ", true},
		{"https://instagram.com/tv/TV1", "TV1", true},
		{"https://instagram.com/someuser/", "", false},
		{"https://youtube.com/watch?v=X", "", false},
	}
	for _, tt := range tests {
		got, ok := InstagramShortcode(tt.url)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("InstagramShortcode(%q) = %q,%v want %q,%v", tt.url, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCleanURL(t *testing.T) {
	tests := map[string]string{
		"  youtube.com/watch?v=X ": "https://youtube.com/watch?v=X",
		"http://x.com/a":           "http://x.com/a",
		"HTTPS://X.COM/a":          "HTTPS://X.COM/a",
		"   ":                      "",
	}
	for in, want := range tests {
		if got := CleanURL(in); got != want {
			t.Errorf("CleanURL(%q) = %q, want %q", in, got, want)
		}
	}
}
