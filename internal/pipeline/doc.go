// Package pipeline sequences the analysis stages for one request and manages
// concurrent runs.
//
// The Orchestrator runs download, transcribe and, for Instagram posts, the
// comment fetch and analysis stages strictly in order. Each stage goes through
// stageexec so failures arrive as typed outcomes: a failed download ends the
// run, every other failure leaves its result fields nil and the run still
// completes. Comment analysis fans out into sentiment scoring and key-point
// extraction, which share no data dependency and run concurrently.
//
// The Manager owns the run registry and one frame feed per run. Submit
// validates the request before any run id exists, then executes the run on its
// own goroutine behind a concurrency limit. Callers either stream frames from
// the feed, poll the registry record, or block on Await for the terminal
// state. Finished runs are archived and announced through the notifier.
package pipeline
