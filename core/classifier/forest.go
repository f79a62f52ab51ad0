package classifier

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// Forest is a random forest of CART trees. Predictions average the class distributions of the trees.
type Forest struct {
	NClasses  int    `json:"n_classes"`
	NFeatures int    `json:"n_features"`
	Trees     []Tree `json:"trees"`
}

// TrainParams are the hyper-parameters of a training run.
type TrainParams struct {
	Trees           int     `json:"trees" yaml:"trees"`
	MaxDepth        int     `json:"max_depth" yaml:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split" yaml:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf" yaml:"min_samples_leaf"`
	MaxFeatures     int     `json:"max_features" yaml:"max_features"` // 0: sqrt(number of features)
	TestSize        float64 `json:"test_size" yaml:"test_size"`
	Seed            int64   `json:"seed" yaml:"seed"`
}

func DefaultTrainParams() TrainParams {
	return TrainParams{
		Trees:           100,
		MaxDepth:        10,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  2,
		TestSize:        0.2,
		Seed:            42,
	}
}

func (p TrainParams) Validate() error {
	switch {
	case p.Trees < 1:
		return errors.New("trees must be at least 1")
	case p.MaxDepth < 1:
		return errors.New("max depth must be at least 1")
	case p.MinSamplesSplit < 2:
		return errors.New("min samples split must be at least 2")
	case p.MinSamplesLeaf < 1:
		return errors.New("min samples leaf must be at least 1")
	case p.MaxFeatures < 0:
		return errors.New("max features cannot be negative")
	case p.TestSize <= 0 || p.TestSize >= 1:
		return errors.New("test size must be in (0, 1)")
	}
	return nil
}

func (p TrainParams) maxFeatures(nFeatures int) int {
	if p.MaxFeatures > 0 && p.MaxFeatures <= nFeatures {
		return p.MaxFeatures
	}
	m := int(math.Sqrt(float64(nFeatures)))
	if m < 1 {
		m = 1
	}
	return m
}

// fitForest trains p.Trees trees, each on a bootstrap sample of the rows with its own seed
// derived from p.Seed, so a run is fully reproducible.
// The returned importances are the mean of the per-tree normalised Gini importances.
func fitForest(X [][]float64, y []int, nClasses int, p TrainParams) (*Forest, []float64) {
	nSamples, nFeatures := len(X), len(X[0])
	master := rand.New(rand.NewSource(p.Seed))

	f := &Forest{NClasses: nClasses, NFeatures: nFeatures, Trees: make([]Tree, 0, p.Trees)}
	importances := make([]float64, nFeatures)
	for t := 0; t < p.Trees; t++ {
		rng := rand.New(rand.NewSource(master.Int63()))

		idx := make([]int, nSamples)
		for i := range idx {
			idx[i] = rng.Intn(nSamples)
		}

		tree, imp := fitTree(X, y, idx, nClasses, p, rng)
		f.Trees = append(f.Trees, tree)

		var total float64
		for _, v := range imp {
			total += v
		}
		if total > 0 {
			for j, v := range imp {
				importances[j] += v / total
			}
		}
	}
	for j := range importances {
		importances[j] /= float64(p.Trees)
	}
	return f, importances
}

// Proba returns the mean class distribution of the trees for x.
func (f *Forest) Proba(x []float64) ([]float64, error) {
	if len(x) != f.NFeatures {
		return nil, errors.Errorf("got %d features, model expects %d", len(x), f.NFeatures)
	}
	if len(f.Trees) == 0 {
		return nil, errors.New("model has no trees")
	}

	proba := make([]float64, f.NClasses)
	for i := range f.Trees {
		p, err := f.Trees[i].proba(x)
		if err != nil {
			return nil, errors.Wrapf(err, "tree %d", i)
		}
		if len(p) != f.NClasses {
			return nil, errors.Errorf("tree %d: %d class values, want %d", i, len(p), f.NClasses)
		}
		for k, v := range p {
			proba[k] += v
		}
	}
	for k := range proba {
		proba[k] /= float64(len(f.Trees))
	}
	return proba, nil
}

// Predict returns the index of the most probable class. Ties go to the lowest index.
func (f *Forest) Predict(x []float64) (int, error) {
	proba, err := f.Proba(x)
	if err != nil {
		return 0, err
	}
	best := 0
	for k, v := range proba {
		if v > proba[best] {
			best = k
		}
	}
	return best, nil
}

func (f *Forest) check() error {
	if f == nil || len(f.Trees) == 0 {
		return errors.New("model has no trees")
	}
	for i := range f.Trees {
		if err := f.Trees[i].check(f.NFeatures, f.NClasses); err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
	}
	return nil
}
