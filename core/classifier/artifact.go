package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/rapor-tpq/rapor/core/assessment"
)

const AlgorithmRandomForest = "random_forest"

// Metrics recorded when the artifact was trained.
type Metrics struct {
	TrainAccuracy float64             `json:"train_accuracy" yaml:"train_accuracy"`
	TestAccuracy  float64             `json:"test_accuracy" yaml:"test_accuracy"`
	TrainSamples  int                 `json:"train_samples" yaml:"train_samples"`
	TestSamples   int                 `json:"test_samples" yaml:"test_samples"`
	Importances   []FeatureImportance `json:"importances" yaml:"importances"`
}

// Header is the feature contract of an artifact: which features, in which order, map to which labels.
// It is also written next to the artifact as a YAML manifest.
type Header struct {
	ID            string                `json:"id" yaml:"id"`
	Algorithm     string                `json:"algorithm" yaml:"algorithm"`
	SchemaVersion int                   `json:"schema_version" yaml:"schema_version"`
	Features      []string              `json:"features" yaml:"features"`
	Labels        []assessment.Category `json:"labels" yaml:"labels"`
	TrainedAt     time.Time             `json:"trained_at" yaml:"trained_at"`
	Params        TrainParams           `json:"params" yaml:"params"`
	Metrics       Metrics               `json:"metrics" yaml:"metrics"`
}

// Artifact is a persisted, immutable trained model.
type Artifact struct {
	Header Header  `json:"header"`
	Forest *Forest `json:"forest"`
}

// ManifestPath returns the path of the YAML manifest of the artifact at path.
func ManifestPath(path string) string {
	return path + ".manifest.yaml"
}

// Save writes the artifact then its manifest. Each file is replaced atomically,
// so a reader never observes a partially written artifact.
func (a *Artifact) Save(path string) error {
	if err := a.validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating artifact directory")
	}

	data, err := json.Marshal(a)
	if err != nil {
		return errors.Wrap(err, "encoding artifact")
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "writing artifact")
	}

	manifest, err := yaml.Marshal(a.Header)
	if err != nil {
		return errors.Wrap(err, "encoding manifest")
	}
	return errors.Wrap(renameio.WriteFile(ManifestPath(path), manifest, 0o644), "writing manifest")
}

// LoadArtifact reads and checks the artifact at path.
// A missing file is reported as ErrModelUnavailable.
func LoadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrModelUnavailable, "opening %s", path)
		}
		return nil, errors.Wrap(err, "opening artifact")
	}
	defer f.Close()

	var a Artifact
	if err := json.NewDecoder(f).Decode(&a); err != nil {
		return nil, errors.Wrapf(err, "decoding artifact %s", path)
	}
	if err := a.validate(); err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return &a, nil
}

// validate rejects artifacts that do not declare this build's schema version and feature set.
// The feature order may differ from the one of assessment.FeatureNames: predictions map features by name.
func (a *Artifact) validate() error {
	h := a.Header
	if h.SchemaVersion != assessment.SchemaVersion {
		return &ArtifactMismatchError{Reason: fmt.Sprintf("schema version %d, want %d", h.SchemaVersion, assessment.SchemaVersion)}
	}

	if len(h.Features) != assessment.NumFeatures {
		return &ArtifactMismatchError{Reason: fmt.Sprintf("%d features, want %d", len(h.Features), assessment.NumFeatures)}
	}
	known := make(map[string]bool, assessment.NumFeatures)
	for _, name := range assessment.FeatureNames() {
		known[name] = true
	}
	seen := make(map[string]bool, len(h.Features))
	for _, name := range h.Features {
		if !known[name] {
			return &ArtifactMismatchError{Reason: "unknown feature " + name}
		}
		if seen[name] {
			return &ArtifactMismatchError{Reason: "duplicate feature " + name}
		}
		seen[name] = true
	}

	if len(h.Labels) == 0 {
		return &ArtifactMismatchError{Reason: "no labels"}
	}
	for _, l := range h.Labels {
		if !l.Valid() {
			return &ArtifactMismatchError{Reason: "invalid label " + string(l)}
		}
	}

	if a.Forest == nil {
		return &ArtifactMismatchError{Reason: "no model"}
	}
	if a.Forest.NFeatures != len(h.Features) || a.Forest.NClasses != len(h.Labels) {
		return &ArtifactMismatchError{Reason: "model shape does not match the header"}
	}
	if err := a.Forest.check(); err != nil {
		return &ArtifactMismatchError{Reason: err.Error()}
	}
	return nil
}

// CandidatePaths returns where to look for the artifact named fileName, in order:
// the explicit path if set, then the working directory, the executable's directory and the
// parent of the working directory.
func CandidatePaths(explicit, fileName string) []string {
	var paths []string
	add := func(p string) {
		for _, q := range paths {
			if q == p {
				return
			}
		}
		paths = append(paths, p)
	}

	if explicit != "" {
		add(explicit)
	}
	wd, wdErr := os.Getwd()
	if wdErr == nil {
		add(filepath.Join(wd, fileName))
	}
	if exe, err := os.Executable(); err == nil {
		add(filepath.Join(filepath.Dir(exe), fileName))
	}
	if wdErr == nil {
		add(filepath.Join(filepath.Dir(wd), fileName))
	}
	return paths
}

// ResolveArtifact returns the first candidate that is an existing file.
func ResolveArtifact(candidates ...string) (string, error) {
	for _, p := range candidates {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
	}
	return "", errors.Wrapf(ErrModelUnavailable, "no artifact found in %v", candidates)
}
