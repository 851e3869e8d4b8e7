// Package stageexec runs one pipeline stage with uniform failure containment.
//
// Run emits a start event, forwards collaborator progress mapped into the
// stage's reserved range, and finishes with exactly one terminal event. Errors
// and panics never escape: they come back as stage.Outcome values classified
// by the stage failure policy.
package stageexec
