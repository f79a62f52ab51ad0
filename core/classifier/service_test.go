package classifier

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rapor-tpq/rapor/core/assessment"
)

// stubArtifact returns an artifact with a single stump: feature splitOn <= threshold gives BB, BSB otherwise.
func stubArtifact(features []string, splitOn string, threshold float64) *Artifact {
	f := -1
	for i, name := range features {
		if name == splitOn {
			f = i
		}
	}
	return &Artifact{
		Header: Header{
			ID:            "stub",
			Algorithm:     AlgorithmRandomForest,
			SchemaVersion: assessment.SchemaVersion,
			Features:      features,
			Labels:        append([]assessment.Category(nil), assessment.Categories...),
		},
		Forest: &Forest{
			NClasses:  len(assessment.Categories),
			NFeatures: len(features),
			Trees: []Tree{{Nodes: []node{
				{Feature: f, Threshold: threshold, Left: 1, Right: 2},
				{Feature: -1, Value: []float64{1, 0, 0, 0}},
				{Feature: -1, Value: []float64{0, 0, 0, 1}},
			}}},
		},
	}
}

func TestService_modelUnavailable(t *testing.T) {
	dir := t.TempDir()
	candidates := []string{
		filepath.Join(dir, "student_model.json"),
		filepath.Join(dir, "app", "student_model.json"),
		dir, // directories are not artifacts
	}

	_, err := ResolveArtifact(candidates...)
	assert.True(t, errors.Is(err, ErrModelUnavailable), "got %v", err)
	assert.Equal(t, ErrModelUnavailable, errors.Cause(err))

	svc, path, err := LoadService(candidates...)
	assert.Equal(t, ErrModelUnavailable, errors.Cause(err))
	assert.Empty(t, path)
	assert.False(t, svc.Available())

	_, err = svc.Predict(assessment.Scores{})
	assert.Equal(t, ErrModelUnavailable, err)
	_, err = svc.Info()
	assert.Equal(t, ErrModelUnavailable, err)

	_, err = LoadArtifact(candidates[0])
	assert.Equal(t, ErrModelUnavailable, errors.Cause(err))
}

func TestResolveArtifact_firstExistingWins(t *testing.T) {
	dir := t.TempDir()
	second := filepath.Join(dir, "b.json")
	third := filepath.Join(dir, "c.json")
	require.NoError(t, os.WriteFile(second, []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(third, []byte("{}"), 0o644))

	got, err := ResolveArtifact(filepath.Join(dir, "a.json"), second, third)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestCandidatePaths(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	paths := CandidatePaths("/srv/models/m.json", "student_model.json")
	require.GreaterOrEqual(t, len(paths), 3)
	assert.Equal(t, "/srv/models/m.json", paths[0])
	assert.Equal(t, filepath.Join(wd, "student_model.json"), paths[1])
	assert.Equal(t, filepath.Join(filepath.Dir(wd), "student_model.json"), paths[len(paths)-1])

	assert.Equal(t, filepath.Join(wd, "student_model.json"), CandidatePaths("", "student_model.json")[0])
}

func TestService_featureOrder(t *testing.T) {
	// the artifact declares its features in reverse order; the stump looks at Bahasa_Arab
	art := stubArtifact(reversed(assessment.FeatureNames()), assessment.FeatBahasaArab, 69.5)
	require.NoError(t, art.validate())
	svc := NewService(art)

	correct := assessment.NewScores([assessment.NumFeatures]int{10, 10, 10, 10, 90, 10, 10, 10, 10, 10, 10, 10})
	got, err := svc.Predict(correct)
	require.NoError(t, err)
	assert.Equal(t, assessment.BSB, got)

	// same numbers, scrambled onto the wrong subjects
	scrambled := assessment.NewScores([assessment.NumFeatures]int{90, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10})
	got2, err := svc.Predict(scrambled)
	require.NoError(t, err)
	assert.Equal(t, assessment.BB, got2)
	assert.NotEqual(t, got, got2)

	// a positional conversion would read Menggambar_Mewarnai where the artifact expects Bahasa_Arab
	vals := correct.Values()
	positional := make([]float64, len(vals))
	for i, v := range vals {
		positional[i] = float64(v)
	}
	idx, err := art.Forest.Predict(positional)
	require.NoError(t, err)
	assert.Equal(t, assessment.BB, art.Header.Labels[idx])
}

func TestService_deterministic(t *testing.T) {
	svc := NewService(stubArtifact(assessment.FeatureNames(), assessment.FeatUlumulQuran, 75))
	in := assessment.NewScores([assessment.NumFeatures]int{70, 71, 72, 73, 74, 75, 76, 77, 78, 79, 80, 81})

	first, err := svc.Predict(in)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]assessment.Category, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = svc.Predict(in)
		}(i)
	}
	wg.Wait()
	for i, got := range results {
		if got != first {
			t.Fatalf("call %d: got %v; want %v", i, got, first)
		}
	}
}

func TestService_predictionError(t *testing.T) {
	art := stubArtifact(assessment.FeatureNames(), assessment.FeatBahasaArab, 50)
	art.Forest.NFeatures = 4 // a 4-feature model behind a 12-feature header

	_, err := NewService(art).Predict(assessment.Scores{})
	var pe *PredictionError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Contains(t, pe.Error(), "model expects 4")

	broken := stubArtifact(assessment.FeatureNames(), assessment.FeatBahasaArab, 50)
	broken.Forest.Trees[0].Nodes[0].Left = 7 // dangling child
	_, err = NewService(broken).Predict(assessment.Scores{})
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Contains(t, pe.Error(), "panic")
}

func TestArtifact_validate(t *testing.T) {
	stubSchema := []string{"feature_1", "feature_2", "feature_3", "feature_4"}

	tests := []struct {
		name   string
		mutate func(a *Artifact)
		reason string
	}{
		{name: "old schema version", mutate: func(a *Artifact) { a.Header.SchemaVersion = 1 }, reason: "schema version 1"},
		{name: "4-field stub schema", mutate: func(a *Artifact) { a.Header.Features = stubSchema }, reason: "4 features"},
		{name: "unknown feature", mutate: func(a *Artifact) { a.Header.Features[3] = "Nama" }, reason: "unknown feature Nama"},
		{name: "duplicate feature", mutate: func(a *Artifact) { a.Header.Features[3] = a.Header.Features[2] }, reason: "duplicate feature"},
		{name: "invalid label", mutate: func(a *Artifact) { a.Header.Labels[0] = "A" }, reason: "invalid label A"},
		{name: "no model", mutate: func(a *Artifact) { a.Forest = nil }, reason: "no model"},
		{name: "shape", mutate: func(a *Artifact) { a.Forest.NClasses = 3 }, reason: "model shape"},
		{name: "cycle", mutate: func(a *Artifact) { a.Forest.Trees[0].Nodes[0].Right = 0 }, reason: "invalid child"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art := stubArtifact(assessment.FeatureNames(), assessment.FeatBahasaArab, 50)
			tt.mutate(art)
			err := art.validate()
			var me *ArtifactMismatchError
			require.True(t, errors.As(err, &me), "got %v", err)
			assert.Contains(t, me.Reason, tt.reason)
		})
	}
}

func TestArtifact_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "student_model.json")
	art := stubArtifact(reversed(assessment.FeatureNames()), assessment.FeatHafalanDoa, 60)

	require.NoError(t, art.Save(path))

	loaded, err := LoadArtifact(path)
	require.NoError(t, err)
	if diff := cmp.Diff(art, loaded); diff != "" {
		t.Errorf("LoadArtifact() mismatch (-want +got):\n%s", diff)
	}

	raw, err := os.ReadFile(ManifestPath(path))
	require.NoError(t, err)
	var manifest Header
	require.NoError(t, yaml.Unmarshal(raw, &manifest))
	assert.Equal(t, assessment.SchemaVersion, manifest.SchemaVersion)
	assert.Equal(t, art.Header.Features, manifest.Features)
	assert.Equal(t, art.Header.Labels, manifest.Labels)

	// replacing the artifact leaves no temporary files behind
	art2 := stubArtifact(assessment.FeatureNames(), assessment.FeatHafalanDoa, 80)
	art2.Header.ID = "stub-2"
	require.NoError(t, art2.Save(path))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	svc, gotPath, err := LoadService(filepath.Join(t.TempDir(), "missing.json"), path)
	require.NoError(t, err)
	assert.Equal(t, path, gotPath)
	info, err := svc.Info()
	require.NoError(t, err)
	assert.Equal(t, "stub-2", info.ID)

	// a corrupt artifact is rejected, not half-loaded
	require.NoError(t, os.WriteFile(path, []byte(`{"header":{"schema_version":1}}`), 0o644))
	_, err = LoadArtifact(path)
	var me *ArtifactMismatchError
	assert.True(t, errors.As(err, &me), "got %v", err)
}
