// Package ffprobe inspects downloaded media with ffprobe. The downloader uses
// it to recover a duration when the site metadata omits one, and the
// transcriber uses it to reject files that carry no audio stream before
// spending time on model loading.
package ffprobe
