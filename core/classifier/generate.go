package classifier

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"strconv"

	"github.com/pkg/errors"

	"github.com/rapor-tpq/rapor/core/assessment"
)

// scoreRange is the per-subject range drawn for a performance level.
type scoreRange struct {
	min, max int
	label    assessment.Category
}

var (
	performanceLevels = []scoreRange{
		{min: 40, max: 59, label: assessment.BB},
		{min: 60, max: 69, label: assessment.MB},
		{min: 70, max: 84, label: assessment.BSH},
		{min: 85, max: 100, label: assessment.BSB},
	}
	sampleClasses = []string{"I.1", "I.2", "I.3", "I.4", "I.5"}
	sampleNoise   = 5
)

// GenerateDataset writes a synthetic labelled dataset of n rows to w. Each row picks a performance
// level, draws every subject score from the level's range, then adds up to ±5 of noise clamped to [0, 100].
// The label is the level, so rows near a band boundary may disagree with the Scorer.
func GenerateDataset(w io.Writer, n int, seed int64) error {
	if n <= 0 {
		return errors.Errorf("number of rows must be positive, got %d", n)
	}
	rng := rand.New(rand.NewSource(seed))

	cw := csv.NewWriter(w)
	header := append([]string{"ID", "Nama", "Kelas"}, assessment.FeatureNames()...)
	header = append(header, "Rata_Rata", LabelColumn)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "writing header")
	}

	for i := 1; i <= n; i++ {
		level := performanceLevels[rng.Intn(len(performanceLevels))]

		var values [assessment.NumFeatures]int
		for j := range values {
			v := level.min + rng.Intn(level.max-level.min+1)
			v += rng.Intn(2*sampleNoise+1) - sampleNoise
			values[j] = clamp(v, 0, 100)
		}

		row := []string{
			strconv.Itoa(i),
			fmt.Sprintf("Siswa_%d", i),
			sampleClasses[rng.Intn(len(sampleClasses))],
		}
		for _, v := range values {
			row = append(row, strconv.Itoa(v))
		}
		row = append(row,
			strconv.FormatFloat(assessment.Average(assessment.NewScores(values)), 'f', 2, 64),
			string(level.label),
		)
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "writing row %d", i)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing dataset")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
