// Package state keeps the build history of an output directory.
//
// Every successful build appends a BuildRecord (artifact, digest, link and the
// custom model data assigned to each overlay) to a JSON file next to the
// artifacts, so the mapping from custom_model_data values to overlays can be
// looked up after the staging tree has been reset.
//
// Key concepts:
//   - BuildRecord: what one build produced
//   - History: the most recent records, oldest first
//   - HistoryStore: Interface for persisting and loading the history
package state
