// Package analysis holds the pure text analyses run over transcripts and
// comments: VADER sentiment scoring and aggregation, RAKE key-phrase
// extraction, word-frequency themes and the summary lines built from them.
//
// Nothing here blocks or fails; empty input yields placeholder output.
package analysis
