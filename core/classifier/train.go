package classifier

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rapor-tpq/rapor/core/assessment"
)

// TrainResult is the outcome of a training run.
type TrainResult struct {
	Artifact *Artifact
	Train    Evaluation
	Test     Evaluation
}

// Train splits ds, fits a random forest on the train set and evaluates it on both sets.
// The artifact is not saved.
func Train(ds *Dataset, p TrainParams) (*TrainResult, error) {
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating parameters")
	}
	if ds == nil || ds.Len() == 0 {
		return nil, errors.New("empty dataset")
	}
	if len(ds.Distribution()) < 2 {
		return nil, errors.New("dataset must contain at least 2 categories")
	}

	trainSet, testSet, err := ds.Split(p.TestSize, p.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "splitting dataset")
	}

	labels := append([]assessment.Category(nil), assessment.Categories...)
	features := assessment.FeatureNames()

	X, y := trainSet.matrix(labels)
	forest, imp := fitForest(X, y, len(labels), p)

	importances := make([]FeatureImportance, len(features))
	for i, name := range features {
		importances[i] = FeatureImportance{Feature: name, Importance: imp[i]}
	}
	sort.SliceStable(importances, func(i, j int) bool { return importances[i].Importance > importances[j].Importance })

	art := &Artifact{
		Header: Header{
			ID:            uuid.New().String(),
			Algorithm:     AlgorithmRandomForest,
			SchemaVersion: assessment.SchemaVersion,
			Features:      features,
			Labels:        labels,
			TrainedAt:     time.Now().UTC(),
			Params:        p,
		},
		Forest: forest,
	}
	svc := NewService(art)

	trainEval, err := svc.Evaluate(trainSet)
	if err != nil {
		return nil, errors.Wrap(err, "evaluating train set")
	}
	testEval, err := svc.Evaluate(testSet)
	if err != nil {
		return nil, errors.Wrap(err, "evaluating test set")
	}

	art.Header.Metrics = Metrics{
		TrainAccuracy: trainEval.Accuracy,
		TestAccuracy:  testEval.Accuracy,
		TrainSamples:  trainSet.Len(),
		TestSamples:   testSet.Len(),
		Importances:   importances,
	}
	return &TrainResult{Artifact: art, Train: trainEval, Test: testEval}, nil
}
