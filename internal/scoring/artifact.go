package scoring

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

//go:embed default_model.json
var defaultArtifact []byte

// Artifact is the on-disk model format produced by the training pipeline.
type Artifact struct {
	Name          string             `json:"name"`
	Version       string             `json:"version"`
	Kind          Kind               `json:"kind"`
	SchemaVersion string             `json:"schema_version"`
	TrainedAt     string             `json:"trained_at,omitempty"`
	TrainingData  string             `json:"training_data,omitempty"`
	Performance   map[string]float64 `json:"performance,omitempty"`
	Features      []string           `json:"features"`
	FeatureStats  []FeatureStat      `json:"feature_stats,omitempty"`

	BaseScore float64 `json:"base_score,omitempty"`
	Trees     []Tree  `json:"trees,omitempty"`

	Intercept    float64   `json:"intercept,omitempty"`
	Coefficients []float64 `json:"coefficients,omitempty"`
}

// Build validates the artifact and returns the model it describes.
func (a Artifact) Build() (Model, error) {
	if a.Version == "" || a.SchemaVersion == "" {
		return nil, &ModelError{Reason: ReasonInvalidArtifact, Detail: "version and schema_version are required"}
	}
	if len(a.Features) == 0 {
		return nil, &ModelError{Reason: ReasonInvalidArtifact, Detail: "artifact lists no features"}
	}
	if len(a.FeatureStats) != 0 && len(a.FeatureStats) != len(a.Features) {
		return nil, &ModelError{Reason: ReasonInvalidArtifact, Detail: "feature_stats length does not match features"}
	}
	info := Info{
		Name:          a.Name,
		Version:       a.Version,
		SchemaVersion: a.SchemaVersion,
		TrainedAt:     a.TrainedAt,
		TrainingData:  a.TrainingData,
		Performance:   a.Performance,
		Features:      a.Features,
		Stats:         a.FeatureStats,
	}
	switch a.Kind {
	case KindTreeEnsemble:
		return NewTreeEnsemble(info, a.BaseScore, a.Trees)
	case KindLogistic:
		return NewLogistic(info, a.Intercept, a.Coefficients)
	default:
		return nil, &ModelError{Reason: ReasonInvalidArtifact, Detail: fmt.Sprintf("unknown model kind %q", a.Kind)}
	}
}

// Load decodes and validates an artifact.
func Load(r io.Reader) (Model, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var a Artifact
	if err := dec.Decode(&a); err != nil {
		return nil, &ModelError{Reason: ReasonInvalidArtifact, Detail: "decode artifact", Err: err}
	}
	return a.Build()
}

// LoadFile reads an artifact from path.
func LoadFile(path string) (Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ModelError{Reason: ReasonNotLoaded, Detail: "open " + path, Err: err}
	}
	defer f.Close()
	return Load(f)
}

// Default returns the model compiled into the binary.
func Default() (Model, error) {
	return Load(bytes.NewReader(defaultArtifact))
}
