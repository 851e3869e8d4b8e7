package audio

import (
	"testing"

	"reelscope/internal/media/ffprobe"
)

func TestSelectSingleAudio(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 0, CodecType: "video", CodecName: "h264"},
		{Index: 1, CodecType: "audio", CodecName: "aac", Channels: 2},
	}
	sel := Select(streams, "")
	if !sel.Found() || sel.Ordinal != 0 || sel.Stream.Index != 1 {
		t.Fatalf("unexpected selection %+v", sel)
	}
	if sel.MapSpec() != "0:a:0" {
		t.Fatalf("map spec = %q", sel.MapSpec())
	}
	if sel.Label() != "aac | 2ch" {
		t.Fatalf("label = %q", sel.Label())
	}
}

func TestSelectPrefersHintedLanguage(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 0, CodecType: "video"},
		{Index: 1, CodecType: "audio", Tags: map[string]string{"language": "eng"}, Disposition: map[string]int{"default": 1}},
		{Index: 2, CodecType: "audio", Tags: map[string]string{"language": "spa"}},
	}
	sel := Select(streams, "es")
	if sel.Ordinal != 1 || sel.MapSpec() != "0:a:1" {
		t.Fatalf("expected spanish dub, got %+v", sel)
	}
	if sel := Select(streams, ""); sel.Ordinal != 0 {
		t.Fatalf("without hint the default stream should win, got %+v", sel)
	}
}

func TestSelectAvoidsCommentary(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 0, CodecType: "audio", Tags: map[string]string{"title": "Director Commentary"}},
		{Index: 1, CodecType: "audio", Tags: map[string]string{"handler_name": "SoundHandler"}},
	}
	sel := Select(streams, "")
	if sel.Ordinal != 1 {
		t.Fatalf("expected main track, got %+v", sel)
	}
}

func TestSelectNoAudio(t *testing.T) {
	sel := Select([]ffprobe.Stream{{Index: 0, CodecType: "video"}}, "en")
	if sel.Found() {
		t.Fatalf("expected no selection, got %+v", sel)
	}
	if sel.Label() != "none" {
		t.Fatalf("label = %q", sel.Label())
	}
}
