package pipeline

import (
	"fmt"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"reelscope/internal/media"
)

// analysisOutput is whatever the two comment analyses produced. A branch that
// panicked leaves its field nil and adds a failure line.
type analysisOutput struct {
	sentiment *media.SentimentReport
	keyPoints *media.KeyPointSet
	failures  []string
}

func (o analysisOutput) empty() bool {
	return o.sentiment == nil && o.keyPoints == nil
}

// fanOut runs sentiment scoring and key-point extraction concurrently over
// the same comments. Both branches only read the slice.
func fanOut(comments []media.Comment, analyzer Analyzer) analysisOutput {
	var (
		out       analysisOutput
		sentiment panics.Catcher
		keyPoints panics.Catcher
		wg        conc.WaitGroup
	)
	wg.Go(func() {
		sentiment.Try(func() { out.sentiment = analyzer.Sentiment(comments) })
	})
	wg.Go(func() {
		keyPoints.Try(func() { out.keyPoints = analyzer.CommentKeyPoints(comments) })
	})
	wg.Wait()

	if r := sentiment.Recovered(); r != nil {
		out.sentiment = nil
		out.failures = append(out.failures, fmt.Sprintf("sentiment: %v", r.Value))
	}
	if r := keyPoints.Recovered(); r != nil {
		out.keyPoints = nil
		out.failures = append(out.failures, fmt.Sprintf("key points: %v", r.Value))
	}
	return out
}
