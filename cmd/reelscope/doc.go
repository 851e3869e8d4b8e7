// Command reelscope downloads a social video, transcribes it and, for
// Instagram posts, analyses the comments.
//
// `reelscope analyze <url>` runs one request in-process and renders its
// progress frames; `reelscope serve` hosts the HTTP API. The remaining
// commands inspect archived runs, manage configuration and check the
// external tools the pipeline depends on.
package main
