// Package stage defines the vocabulary shared by the pipeline stages: stage
// identifiers and their run steps, the Outcome tagged result, the failure
// policy (only downloads are fatal) and readiness records used by status
// endpoints.
package stage
