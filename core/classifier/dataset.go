package classifier

import (
	"encoding/csv"
	"io"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/rapor-tpq/rapor/core/assessment"
)

// LabelColumn holds the category of each dataset row.
const LabelColumn = "Kategori"

// RequiredColumns returns the columns a training dataset must have: the features in training order, then the label.
func RequiredColumns() []string {
	return append(assessment.FeatureNames(), LabelColumn)
}

type Sample struct {
	Scores assessment.Scores
	Label  assessment.Category
}

type Dataset struct {
	Columns []string
	Samples []Sample
}

func (ds *Dataset) Len() int { return len(ds.Samples) }

// ReadDataset reads a labelled CSV dataset. Columns other than the required ones are ignored.
func ReadDataset(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}

	colIdx, err := columnIndexes(header)
	if err != nil {
		return nil, err
	}
	features := assessment.FeatureNames()

	ds := &Dataset{Columns: header}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading line %d", line)
		}

		var values [assessment.NumFeatures]int
		for i, name := range features {
			raw := strings.TrimSpace(record[colIdx[name]])
			if raw == "" {
				return nil, errors.Errorf("line %d: missing value for %s", line, name)
			}
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, errors.Errorf("line %d: invalid value %q for %s", line, raw, name)
			}
			values[i] = int(math.Round(f))
		}
		label, err := assessment.ParseCategory(strings.TrimSpace(record[colIdx[LabelColumn]]))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		ds.Samples = append(ds.Samples, Sample{Scores: assessment.NewScores(values), Label: label})
	}

	if ds.Len() == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return ds, nil
}

// readHeader reads the column names, without a leading BOM or surrounding spaces.
func readHeader(cr *csv.Reader) ([]string, error) {
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("empty dataset")
		}
		return nil, errors.Wrap(err, "reading header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	return header, nil
}

// columnIndexes maps every required column to its position in header.
func columnIndexes(header []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, col := range header {
		if _, dup := pos[col]; !dup {
			pos[col] = i
		}
	}

	idx := make(map[string]int, assessment.NumFeatures+1)
	var missing []string
	for _, col := range RequiredColumns() {
		i, ok := pos[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		idx[col] = i
	}
	if len(missing) > 0 {
		return nil, &SchemaMismatchError{Missing: missing, Available: header}
	}
	return idx, nil
}

// Agreement returns the fraction of samples whose label matches the rule-based Scorer.
func (ds *Dataset) Agreement() float64 {
	if ds.Len() == 0 {
		return 0
	}
	var agree int
	for _, s := range ds.Samples {
		if _, cat := assessment.Categorize(s.Scores); cat == s.Label {
			agree++
		}
	}
	return float64(agree) / float64(ds.Len())
}

// Relabel replaces every label with the category given by the rule-based Scorer.
func (ds *Dataset) Relabel() {
	for i := range ds.Samples {
		_, ds.Samples[i].Label = assessment.Categorize(ds.Samples[i].Scores)
	}
}

// Distribution counts the samples of each category.
func (ds *Dataset) Distribution() map[assessment.Category]int {
	dist := make(map[assessment.Category]int, len(assessment.Categories))
	for _, s := range ds.Samples {
		dist[s.Label]++
	}
	return dist
}

// Split partitions the dataset into train and test sets, keeping the category proportions
// of each set close to the whole (stratified). The same seed always gives the same split.
func (ds *Dataset) Split(testSize float64, seed int64) (train, test *Dataset, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.Errorf("test size must be in (0, 1), got %v", testSize)
	}

	byLabel := make(map[assessment.Category][]int)
	for i, s := range ds.Samples {
		byLabel[s.Label] = append(byLabel[s.Label], i)
	}

	rng := rand.New(rand.NewSource(seed))
	train = &Dataset{Columns: ds.Columns}
	test = &Dataset{Columns: ds.Columns}
	for _, cat := range assessment.Categories { // fixed order keeps the split deterministic
		idx := byLabel[cat]
		if len(idx) == 0 {
			continue
		}
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		nTest := int(math.Round(testSize * float64(len(idx))))
		if nTest == 0 && len(idx) > 1 {
			nTest = 1
		}
		if nTest == len(idx) {
			nTest--
		}
		for k, i := range idx {
			if k < nTest {
				test.Samples = append(test.Samples, ds.Samples[i])
			} else {
				train.Samples = append(train.Samples, ds.Samples[i])
			}
		}
	}
	if train.Len() == 0 || test.Len() == 0 {
		return nil, nil, errors.Errorf("dataset of %d rows is too small to split", ds.Len())
	}
	return train, test, nil
}

// matrix returns the samples as feature rows in training order and their class indexes in labels.
func (ds *Dataset) matrix(labels []assessment.Category) ([][]float64, []int) {
	classes := make(map[assessment.Category]int, len(labels))
	for i, l := range labels {
		classes[l] = i
	}

	X := make([][]float64, ds.Len())
	y := make([]int, ds.Len())
	for i, s := range ds.Samples {
		row := make([]float64, assessment.NumFeatures)
		for j, v := range s.Scores.Values() {
			row[j] = float64(v)
		}
		X[i] = row
		y[i] = classes[s.Label]
	}
	return X, y
}

// Profile summarises a raw CSV dataset without requiring it to be valid.
type Profile struct {
	Rows           int
	Columns        []string
	MissingColumns []string
	MissingValues  map[string]int
	Distribution   map[string]int
}

// ProfileDataset reads r and reports its shape, columns, missing values and label distribution.
func ProfileDataset(r io.Reader) (*Profile, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	p := &Profile{
		Columns:       header,
		MissingValues: make(map[string]int),
		Distribution:  make(map[string]int),
	}
	if _, err := columnIndexes(header); err != nil {
		var sm *SchemaMismatchError
		if errors.As(err, &sm) {
			p.MissingColumns = sm.Missing
		}
	}

	labelIdx := -1
	for i, col := range header {
		if col == LabelColumn {
			labelIdx = i
		}
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading row %d", p.Rows+1)
		}
		p.Rows++
		for i, col := range header {
			if i >= len(record) || strings.TrimSpace(record[i]) == "" {
				p.MissingValues[col]++
			}
		}
		if labelIdx >= 0 && labelIdx < len(record) {
			p.Distribution[strings.TrimSpace(record[labelIdx])]++
		}
	}
	return p, nil
}

// SortedLabels returns the labels of the distribution, known categories first in ascending order.
func (p *Profile) SortedLabels() []string {
	labels := make([]string, 0, len(p.Distribution))
	for l := range p.Distribution {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		ri, rj := assessment.Category(labels[i]).Rank(), assessment.Category(labels[j]).Rank()
		if ri != rj {
			if ri < 0 {
				return false
			}
			if rj < 0 {
				return true
			}
			return ri < rj
		}
		return labels[i] < labels[j]
	})
	return labels
}
