package stage

import "context"

// ID names one pipeline stage.
type ID string

const (
	Download      ID = "download"
	Transcribe    ID = "transcribe"
	FetchComments ID = "fetch_comments"
	Analyse       ID = "analyse"
)

// Order lists every stage in execution order.
var Order = []ID{Download, Transcribe, FetchComments, Analyse}

// Step is the run-level position reported to pollers and stream consumers.
type Step string

const (
	StepDownloading      Step = "downloading"
	StepTranscribing     Step = "transcribing"
	StepFetchingComments Step = "fetching_comments"
	StepAnalysing        Step = "analysing"
	StepDone             Step = "done"
)

// Step returns the run step a stage reports while it executes.
func (id ID) Step() Step {
	switch id {
	case Download:
		return StepDownloading
	case Transcribe:
		return StepTranscribing
	case FetchComments:
		return StepFetchingComments
	case Analyse:
		return StepAnalysing
	default:
		return StepDone
	}
}

// Fatal reports whether a failure of this stage ends the run. Only a failed
// download is fatal; every later stage degrades to a null result field.
func (id ID) Fatal() bool {
	return id == Download
}

func (id ID) String() string { return string(id) }

// ProgressFunc receives a stage-local fraction in [0,1] and a status message.
type ProgressFunc func(local float64, message string)

// Func is the unit of work a stage executes.
type Func[T any] func(ctx context.Context, report ProgressFunc) (T, error)
