// Package audio picks the audio stream a transcription should listen to.
//
// Downloads from most platforms carry one audio stream, but merged yt-dlp
// output and some YouTube formats ship several (dubs, described video). Select
// ranks audio streams by:
//  1. Language tag matching the request hint
//  2. Default disposition
//  3. Titles that do not look like commentary or audio description
//  4. Container order
package audio
