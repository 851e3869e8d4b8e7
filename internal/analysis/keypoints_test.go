package analysis

import (
	"strings"
	"testing"

	"reelscope/internal/media"
)

func TestCommentKeyPointsSummaryOrder(t *testing.T) {
	long := strings.Repeat("x", 120)
	comments := []media.Comment{
		{Text: "Spicy ramen recipe rocks", LikeCount: 5},
		{Text: "Spicy ramen forever", LikeCount: 50},
		{Text: long, LikeCount: 20},
		{Text: "no likes here", LikeCount: 0},
	}
	kp := CommentKeyPoints(comments)

	if len(kp.Summary) != 5 {
		t.Fatalf("expected topics, words and three popular lines, got %q", kp.Summary)
	}
	if !strings.HasPrefix(kp.Summary[0], "Top topics discussed: ") {
		t.Fatalf("first line should list topics: %q", kp.Summary[0])
	}
	if kp.Summary[1] != "Most frequently mentioned: spicy, ramen, recipe, rocks, forever" {
		t.Fatalf("unexpected frequency line %q", kp.Summary[1])
	}
	wantPopular := []string{
		`Popular comment (50 likes): "Spicy ramen forever"`,
		`Popular comment (20 likes): "` + strings.Repeat("x", 100) + `..."`,
		`Popular comment (5 likes): "Spicy ramen recipe rocks"`,
	}
	for i, want := range wantPopular {
		if kp.Summary[2+i] != want {
			t.Fatalf("popular line %d = %q, want %q", i, kp.Summary[2+i], want)
		}
	}
	if kp.Themes[0].Word != "spicy" || kp.Themes[0].Count != 2 {
		t.Fatalf("unexpected top theme %+v", kp.Themes[0])
	}
}

func TestCommentKeyPointsEmptyInput(t *testing.T) {
	kp := CommentKeyPoints([]media.Comment{{Text: ""}, {Text: "   "}})
	if len(kp.Summary) != 1 || kp.Summary[0] != "No comment text available for analysis." {
		t.Fatalf("unexpected summary %q", kp.Summary)
	}
	if kp.Phrases == nil || kp.Themes == nil {
		t.Fatal("empty sets must not be nil")
	}

	none := CommentKeyPoints([]media.Comment{{Text: "the and of it"}})
	if len(none.Summary) != 1 || none.Summary[0] != "Not enough data to extract meaningful points." {
		t.Fatalf("unexpected fallback %q", none.Summary)
	}
}

func TestTranscriptKeyPointsContext(t *testing.T) {
	text := "Hello. Kubernetes clusters are great for teams that scale fast. Bye."
	kp := TranscriptKeyPoints(text)
	want := []string{
		"Key topics in the video: scale fast, kubernetes clusters, teams, hello, great",
		`Context: "Kubernetes clusters are great for teams that scale fast..."`,
	}
	if len(kp.Summary) != len(want) {
		t.Fatalf("unexpected summary %q", kp.Summary)
	}
	for i := range want {
		if kp.Summary[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, kp.Summary[i], want[i])
		}
	}
	if kp.Themes != nil {
		t.Fatal("transcript key points carry no themes")
	}
}

func TestTranscriptKeyPointsNeverInventsContext(t *testing.T) {
	kp := TranscriptKeyPoints("hello")
	if len(kp.Summary) != 1 || kp.Summary[0] != "Key topics in the video: hello" {
		t.Fatalf("unexpected summary %q", kp.Summary)
	}
	if got := TranscriptKeyPoints("  ").Summary; got[0] != "No transcription text available." {
		t.Fatalf("unexpected blank summary %q", got)
	}
	if got := TranscriptKeyPoints("the and of.").Summary; got[0] != "Not enough content to extract key points." {
		t.Fatalf("unexpected fallback %q", got)
	}
}
