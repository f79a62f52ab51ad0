package classifier

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/rapor-tpq/rapor/core/assessment"
)

// Service predicts categories with a loaded artifact. It never changes after construction,
// so one Service can be shared by concurrent requests.
type Service struct {
	art *Artifact
}

// NewService returns a Service backed by art. A nil art gives a Service whose predictions
// all fail with ErrModelUnavailable.
func NewService(art *Artifact) *Service {
	return &Service{art: art}
}

// LoadService resolves the artifact among candidates and loads it once.
// On failure it still returns a usable, unavailable Service along with the error.
func LoadService(candidates ...string) (*Service, string, error) {
	path, err := ResolveArtifact(candidates...)
	if err != nil {
		return NewService(nil), "", err
	}
	art, err := LoadArtifact(path)
	if err != nil {
		return NewService(nil), path, err
	}
	return NewService(art), path, nil
}

func (svc *Service) Available() bool { return svc != nil && svc.art != nil }

// Info returns the header of the loaded artifact.
func (svc *Service) Info() (Header, error) {
	if !svc.Available() {
		return Header{}, ErrModelUnavailable
	}
	return svc.art.Header, nil
}

// Predict returns the category predicted for s. Features are taken from s by name,
// in the order declared by the artifact.
func (svc *Service) Predict(s assessment.Scores) (cat assessment.Category, err error) {
	if !svc.Available() {
		return "", ErrModelUnavailable
	}

	defer func() {
		if r := recover(); r != nil {
			cat, err = "", &PredictionError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	vec, ok := s.FeatureVector(svc.art.Header.Features)
	if !ok {
		return "", &PredictionError{Err: errors.New("artifact declares unknown features")}
	}
	idx, err := svc.art.Forest.Predict(vec)
	if err != nil {
		return "", &PredictionError{Err: err}
	}
	if idx < 0 || idx >= len(svc.art.Header.Labels) {
		return "", &PredictionError{Err: errors.Errorf("class index %d out of range", idx)}
	}
	return svc.art.Header.Labels[idx], nil
}

// Evaluate predicts every sample of ds and compares the predictions with the dataset labels.
func (svc *Service) Evaluate(ds *Dataset) (Evaluation, error) {
	if !svc.Available() {
		return Evaluation{}, ErrModelUnavailable
	}
	want := make([]assessment.Category, ds.Len())
	got := make([]assessment.Category, ds.Len())
	for i, s := range ds.Samples {
		cat, err := svc.Predict(s.Scores)
		if err != nil {
			return Evaluation{}, errors.Wrapf(err, "sample %d", i+1)
		}
		want[i] = s.Label
		got[i] = cat
	}
	return Evaluate(svc.art.Header.Labels, want, got), nil
}
