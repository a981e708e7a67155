package core

// ArtifactStore persists files produced during a run (tables, figures, code,
// reports). Implementations must be thread-safe and scope artifacts by run
// identifier so concurrent runs never share an output location.
type ArtifactStore interface {
	Save(runID, name string, data []byte) error
	Get(runID, name string) ([]byte, error)
	List(runID string) ([]string, error)
	Delete(runID, name string) error
}
