package classifier

import (
	"github.com/rapor-tpq/rapor/core/assessment"
)

type ClassReport struct {
	Label     assessment.Category `json:"label" yaml:"label"`
	Precision float64             `json:"precision" yaml:"precision"`
	Recall    float64             `json:"recall" yaml:"recall"`
	F1        float64             `json:"f1" yaml:"f1"`
	Support   int                 `json:"support" yaml:"support"`
}

// Evaluation compares expected and predicted labels.
// Confusion[i][j] counts samples of Labels[i] predicted as Labels[j].
type Evaluation struct {
	Samples   int                   `json:"samples" yaml:"samples"`
	Accuracy  float64               `json:"accuracy" yaml:"accuracy"`
	Labels    []assessment.Category `json:"labels" yaml:"labels"`
	Confusion [][]int               `json:"confusion" yaml:"confusion"`
	Classes   []ClassReport         `json:"classes" yaml:"classes"`
}

// Evaluate builds the confusion matrix and per-class report of got against want.
// Labels outside of labels are counted in accuracy only.
func Evaluate(labels []assessment.Category, want, got []assessment.Category) Evaluation {
	pos := make(map[assessment.Category]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}

	ev := Evaluation{
		Samples:   len(want),
		Labels:    labels,
		Confusion: make([][]int, len(labels)),
	}
	for i := range ev.Confusion {
		ev.Confusion[i] = make([]int, len(labels))
	}

	var correct int
	for i := range want {
		if want[i] == got[i] {
			correct++
		}
		wi, ok1 := pos[want[i]]
		gi, ok2 := pos[got[i]]
		if ok1 && ok2 {
			ev.Confusion[wi][gi]++
		}
	}
	if len(want) > 0 {
		ev.Accuracy = float64(correct) / float64(len(want))
	}

	for i, l := range labels {
		var tp, predicted, actual int
		for j := range labels {
			predicted += ev.Confusion[j][i]
			actual += ev.Confusion[i][j]
		}
		tp = ev.Confusion[i][i]

		cr := ClassReport{Label: l, Support: actual}
		if predicted > 0 {
			cr.Precision = float64(tp) / float64(predicted)
		}
		if actual > 0 {
			cr.Recall = float64(tp) / float64(actual)
		}
		if cr.Precision+cr.Recall > 0 {
			cr.F1 = 2 * cr.Precision * cr.Recall / (cr.Precision + cr.Recall)
		}
		ev.Classes = append(ev.Classes, cr)
	}
	return ev
}

// FeatureImportance is the share of the forest's impurity decrease brought by a feature.
type FeatureImportance struct {
	Feature    string  `json:"feature" yaml:"feature"`
	Importance float64 `json:"importance" yaml:"importance"`
}
