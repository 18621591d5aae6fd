// Package planner handles the planning phase of overlay merges.
//
// Before an overlay touches the staging tree the planner resolves every
// source, computes every destination, and checks each destination for
// collisions. The resulting MergePlan is deterministic and side-effect free,
// which lets callers offer a dry run and refuse a merge up front instead of
// discovering a collision halfway through.
//
// Key responsibilities:
//   - Validate item and overlay identifiers
//   - Resolve the model source (custom model or base template)
//   - Generate MergePlan with ordered operations
//   - Detect collisions with already staged files
package planner
