// Package services defines the shared error taxonomy and context annotations
// used by every pipeline stage.
//
// Stage code wraps failures with one of the exported sentinel errors so the
// orchestrator can classify them without string matching, and annotates
// contexts with asset/stage/correlation identifiers that the logging package
// turns into structured fields.
package services
