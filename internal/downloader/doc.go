// Package downloader fetches videos with yt-dlp.
//
// The client streams yt-dlp's line output, converts "[download] NN.N%" lines
// into stage-local progress and decodes the metadata JSON yt-dlp prints after
// the download. When the site omits a duration the file is probed with
// ffprobe instead.
package downloader
