package classifier

import (
	"math/rand"
	"sort"

	"github.com/pkg/errors"
)

// node of a decision tree. Leaves have Feature == -1 and carry the class distribution in Value.
// Internal nodes send x to Left when x[Feature] <= Threshold, to Right otherwise.
type node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t,omitempty"`
	Left      int       `json:"l,omitempty"`
	Right     int       `json:"r,omitempty"`
	Value     []float64 `json:"v,omitempty"`
}

func (n node) isLeaf() bool { return n.Feature < 0 }

// Tree is a CART classification tree stored as a flat node list, root first.
type Tree struct {
	Nodes []node `json:"nodes"`
}

// proba returns the class distribution of the leaf reached by x.
func (t *Tree) proba(x []float64) ([]float64, error) {
	if len(t.Nodes) == 0 {
		return nil, errors.New("empty tree")
	}
	i := 0
	for {
		n := t.Nodes[i]
		if n.isLeaf() {
			return n.Value, nil
		}
		if n.Feature >= len(x) {
			return nil, errors.Errorf("feature %d out of range for a vector of %d values", n.Feature, len(x))
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// check verifies that the tree is well formed: every child comes after its parent, so walks terminate.
func (t *Tree) check(nFeatures, nClasses int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.isLeaf() {
			if len(n.Value) != nClasses {
				return errors.Errorf("node %d: %d class values, want %d", i, len(n.Value), nClasses)
			}
			continue
		}
		if n.Feature >= nFeatures {
			return errors.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		for _, c := range []int{n.Left, n.Right} {
			if c <= i || c >= len(t.Nodes) {
				return errors.Errorf("node %d: invalid child %d", i, c)
			}
		}
	}
	return nil
}

type treeBuilder struct {
	X           [][]float64
	y           []int
	nClasses    int
	params      TrainParams
	rng         *rand.Rand
	nodes       []node
	importances []float64
}

// fitTree grows a tree on the samples at idx (indexes may repeat, as with bootstrap samples).
// importances accumulates the weighted Gini decrease brought by each feature.
func fitTree(X [][]float64, y []int, idx []int, nClasses int, params TrainParams, rng *rand.Rand) (Tree, []float64) {
	b := &treeBuilder{
		X:           X,
		y:           y,
		nClasses:    nClasses,
		params:      params,
		rng:         rng,
		importances: make([]float64, len(X[0])),
	}
	b.grow(idx, 0)
	return Tree{Nodes: b.nodes}, b.importances
}

func (b *treeBuilder) counts(idx []int) []int {
	c := make([]int, b.nClasses)
	for _, i := range idx {
		c[b.y[i]]++
	}
	return c
}

func (b *treeBuilder) leaf(counts []int, n int) int {
	v := make([]float64, b.nClasses)
	for k, c := range counts {
		v[k] = float64(c) / float64(n)
	}
	b.nodes = append(b.nodes, node{Feature: -1, Value: v})
	return len(b.nodes) - 1
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	n := len(idx)
	counts := b.counts(idx)
	parentGini := gini(counts, n)

	if depth >= b.params.MaxDepth || n < b.params.MinSamplesSplit || parentGini == 0 {
		return b.leaf(counts, n)
	}

	split, ok := b.bestSplit(idx, counts)
	if !ok {
		return b.leaf(counts, n)
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][split.feature] <= split.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	b.importances[split.feature] += float64(n)*parentGini - split.impurity

	self := len(b.nodes)
	b.nodes = append(b.nodes, node{Feature: split.feature, Threshold: split.threshold})
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[self].Left = l
	b.nodes[self].Right = r
	return self
}

type split struct {
	feature   int
	threshold float64
	impurity  float64 // n_left*gini_left + n_right*gini_right
}

// bestSplit searches a random subset of features for the threshold with the lowest weighted Gini impurity.
func (b *treeBuilder) bestSplit(idx []int, counts []int) (split, bool) {
	nFeatures := len(b.X[0])
	candidates := b.rng.Perm(nFeatures)[:b.params.maxFeatures(nFeatures)]

	n := len(idx)
	minLeaf := b.params.MinSamplesLeaf
	best := split{feature: -1}
	sorted := make([]int, n)
	leftCounts := make([]int, b.nClasses)
	rightCounts := make([]int, b.nClasses)

	for _, f := range candidates {
		copy(sorted, idx)
		sort.Slice(sorted, func(i, j int) bool { return b.X[sorted[i]][f] < b.X[sorted[j]][f] })

		for k := range leftCounts {
			leftCounts[k] = 0
			rightCounts[k] = counts[k]
		}
		for pos := 0; pos < n-1; pos++ {
			c := b.y[sorted[pos]]
			leftCounts[c]++
			rightCounts[c]--

			nl, nr := pos+1, n-pos-1
			cur, next := b.X[sorted[pos]][f], b.X[sorted[pos+1]][f]
			if cur == next || nl < minLeaf || nr < minLeaf {
				continue
			}
			impurity := float64(nl)*gini(leftCounts, nl) + float64(nr)*gini(rightCounts, nr)
			if best.feature < 0 || impurity < best.impurity {
				best = split{feature: f, threshold: (cur + next) / 2, impurity: impurity}
			}
		}
	}
	return best, best.feature >= 0
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		g -= p * p
	}
	return g
}
