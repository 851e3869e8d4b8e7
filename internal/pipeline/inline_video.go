package pipeline

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"reelscope/internal/logging"
)

// DefaultInlineVideoLimit caps the size of a video embedded in an ephemeral
// result.
const DefaultInlineVideoLimit int64 = 10 << 20

var videoMIMETypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
}

// WithInlineVideoLimit changes the largest file that ephemeral runs embed in
// their result. Zero or less disables embedding.
func WithInlineVideoLimit(limit int64) Option {
	return func(o *Orchestrator) { o.inlineLimit = limit }
}

// videoMIMEType maps a file extension onto a video MIME type, mp4 when
// unknown.
func videoMIMEType(path string) string {
	if mime, ok := videoMIMETypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return "video/mp4"
}

// videoDataURL reads path into a base64 data: URL. It returns "" without an
// error when the file is larger than limit.
func videoDataURL(path string, limit int64) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > limit {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("data:%s;base64,%s", videoMIMEType(path), base64.StdEncoding.EncodeToString(data)), nil
}

// inlineVideo embeds the download before release deletes it. Failure only
// costs the playable copy, so it is logged and the run continues.
func (o *Orchestrator) inlineVideo(logger *slog.Logger, path string) string {
	if o.inlineLimit <= 0 || path == "" {
		return ""
	}
	dataURL, err := videoDataURL(path, o.inlineLimit)
	if err != nil {
		logging.WarnWithContext(logger, "video could not be inlined", "video_inline_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "result carries no playable video"),
		)
		return ""
	}
	if dataURL == "" {
		logger.Info("video too large to inline",
			logging.String("path", path),
			logging.Int("limit_bytes", int(o.inlineLimit)),
		)
	}
	return dataURL
}
