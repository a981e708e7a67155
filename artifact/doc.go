// Package artifact contains implementations of core.ArtifactStore, the output
// location for tables, figures, code and reports produced during a run.
//
// Artifacts are always scoped by run ID: two runs writing "results.csv" never
// collide. InMemoryStore keeps everything in process; DirStore writes to
// <root>/<runID>/<name> so a CLI run leaves its outputs on disk.
package artifact
