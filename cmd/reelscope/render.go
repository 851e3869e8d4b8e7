package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reelscope/internal/events"
	"reelscope/internal/media"
	"reelscope/internal/stage"
)

const transcriptPreviewLines = 12

type frameRenderer struct {
	out      io.Writer
	json     *json.Encoder
	colorize bool
}

func newFrameRenderer(out io.Writer, jsonLines, colorize bool) *frameRenderer {
	r := &frameRenderer{out: out, colorize: colorize}
	if jsonLines {
		r.json = newJSONEncoder(out)
	}
	return r
}

func (r *frameRenderer) render(frame events.Frame) error {
	if r.json != nil {
		return r.json.Encode(frame)
	}
	var line string
	switch frame.Type {
	case events.TypeResult:
		line = "[100%] Finished"
		if r.colorize {
			line = ansiGreen + line + ansiReset
		}
	case events.TypeError:
		line = "[fail] " + frame.Error
		if r.colorize {
			line = ansiRed + line + ansiReset
		}
	default:
		line = fmt.Sprintf("[%3d%%] %-18s %s", frame.Progress, stepLabel(frame.Step), frame.Message)
	}
	_, err := fmt.Fprintln(r.out, line)
	return err
}

func stepLabel(step stage.Step) string {
	words := strings.ReplaceAll(string(step), "_", " ")
	return cases.Title(language.English).String(words)
}

func renderResult(out io.Writer, result *media.AggregateResult, notes []string, colorize bool) {
	if result == nil {
		return
	}
	var lines []string
	section := func(title string) {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader(title, colorize)...)
	}

	section("Video")
	if video := result.Video; video != nil {
		lines = append(lines,
			renderStatusLine("Title", statusInfo, video.Title, colorize),
			renderStatusLine("Uploader", statusInfo, video.Uploader, colorize),
			renderStatusLine("Platform", statusInfo, result.Platform.String(), colorize),
			renderStatusLine("Duration", statusInfo, formatSeconds(video.DurationSeconds), colorize),
		)
		switch {
		case video.VideoURL != "":
			lines = append(lines, renderStatusLine("Served at", statusInfo, video.VideoURL, colorize))
		case video.VideoData != "":
			lines = append(lines, renderStatusLine("Inline video", statusInfo,
				fmt.Sprintf("%d base64 characters", len(video.VideoData)), colorize))
		}
	}

	section("Transcript")
	if tr := result.Transcription; tr != nil {
		lines = append(lines, renderStatusLine("Language", statusOK,
			fmt.Sprintf("%s (%.0f%%)", tr.Language, tr.LanguageConfidence*100), colorize))
		preview := strings.Split(tr.FormattedWithTimestamps(), "\n")
		if len(preview) > transcriptPreviewLines {
			remaining := len(preview) - transcriptPreviewLines
			preview = append(preview[:transcriptPreviewLines], fmt.Sprintf("... %d more segments", remaining))
		}
		for _, line := range preview {
			lines = append(lines, statusIndent+line)
		}
	} else {
		lines = append(lines, renderStatusLine("Transcript", statusWarn, "unavailable", colorize))
	}
	lines = appendKeyPoints(lines, "Key points", result.TranscriptionKeyPoints)

	if result.IsCommentEligible {
		section("Comments")
		if comments := result.Comments; comments != nil {
			lines = append(lines,
				renderStatusLine("Fetched", statusOK, strconv.Itoa(comments.Count), colorize),
				renderStatusLine("Logged in", statusInfo, yesNo(comments.LoginUsed), colorize),
			)
		} else {
			lines = append(lines, renderStatusLine("Comments", statusWarn, "unavailable", colorize))
		}
		if report := result.Sentiment; report != nil {
			lines = append(lines, renderStatusLine("Overall", sentimentKind(report.Overall), string(report.Overall), colorize))
			lines = append(lines, strings.Split(renderTable(
				[]string{"Sentiment", "Comments", "Share"},
				[][]string{
					{"Positive", strconv.Itoa(report.Distribution.Positive), fmt.Sprintf("%.1f%%", report.Percentages.Positive)},
					{"Neutral", strconv.Itoa(report.Distribution.Neutral), fmt.Sprintf("%.1f%%", report.Percentages.Neutral)},
					{"Negative", strconv.Itoa(report.Distribution.Negative), fmt.Sprintf("%.1f%%", report.Percentages.Negative)},
				},
				[]columnAlignment{alignLeft, alignRight, alignRight},
			), "\n")...)
			if report.Summary != "" {
				lines = append(lines, statusIndent+report.Summary)
			}
		}
		lines = appendKeyPoints(lines, "Comment key points", result.CommentKeyPoints)
	}

	if len(notes) > 0 {
		section("Notes")
		for _, note := range notes {
			lines = append(lines, renderStatusLine("Partial", statusWarn, note, colorize))
		}
	}

	fmt.Fprintln(out, strings.Join(lines, "\n"))
}

func appendKeyPoints(lines []string, label string, set *media.KeyPointSet) []string {
	if set == nil || len(set.Summary) == 0 {
		return lines
	}
	lines = append(lines, statusIndent+label+":")
	for _, point := range set.Summary {
		lines = append(lines, statusIndent+"  - "+point)
	}
	return lines
}

func sentimentKind(label media.SentimentLabel) statusKind {
	switch label {
	case media.Positive:
		return statusOK
	case media.Negative:
		return statusError
	default:
		return statusInfo
	}
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "unknown"
	}
	return (time.Duration(seconds * float64(time.Second))).Round(time.Second).String()
}
