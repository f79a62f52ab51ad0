package assessment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		avg  float64
		want Category
	}{
		{avg: 0, want: BB},
		{avg: 59.99, want: BB},
		{avg: 60.00, want: MB},
		{avg: 69.99, want: MB},
		{avg: 70.00, want: BSH},
		{avg: 84.99, want: BSH},
		{avg: 85.00, want: BSB},
		{avg: 100, want: BSB},
		{avg: 120, want: BSB}, // out of range is not rejected
		{avg: -5, want: BB},
	}
	for _, tt := range tests {
		if got := CategoryFor(tt.avg); got != tt.want {
			t.Errorf("CategoryFor(%v) = %v; want %v", tt.avg, got, tt.want)
		}
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name    string
		values  [NumFeatures]int
		wantAvg float64
		wantCat Category
	}{
		{name: "BB", values: [NumFeatures]int{45, 50, 48, 52, 47, 49, 46, 51, 48, 50, 47, 49}, wantAvg: 48.50, wantCat: BB},
		{name: "MB", values: [NumFeatures]int{65, 62, 68, 64, 66, 63, 67, 65, 64, 66, 65, 63}, wantAvg: 64.83, wantCat: MB},
		{name: "BSH", values: [NumFeatures]int{78, 75, 80, 77, 79, 76, 78, 82, 75, 80, 77, 79}, wantAvg: 78.0, wantCat: BSH},
		{name: "BSB", values: [NumFeatures]int{92, 88, 95, 90, 93, 87, 91, 94, 89, 96, 90, 92}, wantAvg: 91.42, wantCat: BSB},
		{name: "BSH near MB", values: [NumFeatures]int{83, 77, 69, 75, 82, 74, 72, 85, 76, 82, 84, 82}, wantAvg: 78.42, wantCat: BSH},
		{name: "exactly 60", values: [NumFeatures]int{60, 60, 60, 60, 60, 60, 60, 60, 60, 60, 60, 60}, wantAvg: 60, wantCat: MB},
		{name: "exactly 70", values: [NumFeatures]int{100, 40, 70, 70, 70, 70, 70, 70, 70, 70, 70, 70}, wantAvg: 70, wantCat: BSH},
		{name: "exactly 85", values: [NumFeatures]int{85, 85, 85, 85, 85, 85, 85, 85, 85, 85, 85, 85}, wantAvg: 85, wantCat: BSB},
		{name: "just below 60", values: [NumFeatures]int{60, 60, 60, 60, 60, 60, 60, 60, 60, 60, 60, 59}, wantAvg: 59.92, wantCat: BB},
		{name: "out of range not rejected", values: [NumFeatures]int{150, 150, 150, 150, 150, 150, 150, 150, 150, 150, 150, 150}, wantAvg: 150, wantCat: BSB},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, cat := Categorize(NewScores(tt.values))
			assert.InDelta(t, tt.wantAvg, avg, 1e-9)
			assert.Equal(t, tt.wantCat, cat)
		})
	}
}

func TestCategorize_sameAverageSameCategory(t *testing.T) {
	flat := NewScores([NumFeatures]int{70, 70, 70, 70, 70, 70, 70, 70, 70, 70, 70, 70})
	spread := NewScores([NumFeatures]int{100, 100, 100, 100, 100, 100, 40, 40, 40, 40, 40, 40})

	avgFlat, catFlat := Categorize(flat)
	avgSpread, catSpread := Categorize(spread)

	assert.Equal(t, avgFlat, avgSpread)
	assert.Equal(t, catFlat, catSpread)
}

func TestScores_Values(t *testing.T) {
	s := Scores{
		AlQuranIqro:          1,
		HafalanSuratPendek:   2,
		HafalanDoa:           3,
		HafalanAyatPilihan:   4,
		BahasaArab:           5,
		BahasaInggris:        6,
		KhatMenulis:          7,
		MenggambarMewarnai:   8,
		JasmaniKesehatan:     9,
		KreativitasKeaktifan: 10,
		UlumulQuran:          11,
		KemampuanBerbahasa:   12,
	}
	assert.Equal(t, [NumFeatures]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, s.Values())
	assert.Equal(t, s, NewScores(s.Values()))

	// every named feature resolves to the value at the same position
	for i, name := range FeatureNames() {
		got, ok := s.Feature(name)
		if !ok {
			t.Fatalf("Feature(%q) not found", name)
		}
		if got != float64(i+1) {
			t.Errorf("Feature(%q) = %v; want %v", name, got, i+1)
		}
	}

	_, ok := s.Feature("Nama")
	assert.False(t, ok)
}

func TestScores_FeatureVector(t *testing.T) {
	s := NewScores([NumFeatures]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})

	vec, ok := s.FeatureVector([]string{FeatKemampuanBerbahasa, FeatAlQuranIqro, FeatBahasaArab})
	assert.True(t, ok)
	assert.Equal(t, []float64{12, 1, 5}, vec)

	_, ok = s.FeatureVector([]string{FeatAlQuranIqro, "feature_1"})
	assert.False(t, ok)
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, err := ParseCategory(string(c))
		assert.NoError(t, err)
		assert.Equal(t, c, got)
	}
	for _, s := range []string{"", "bb", "A", "BSB "} {
		_, err := ParseCategory(s)
		assert.Error(t, err, s)
	}
	assert.True(t, BB.Rank() < MB.Rank())
	assert.True(t, MB.Rank() < BSH.Rank())
	assert.True(t, BSH.Rank() < BSB.Rank())
	assert.Equal(t, -1, Category("X").Rank())
}

func TestScoresInput(t *testing.T) {
	s := NewScores([NumFeatures]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
	assert.Equal(t, s, InputOf(s).Scores())

	// an explicit 0 is kept apart from a missing subject
	var in ScoresInput
	require.NoError(t, json.Unmarshal([]byte(`{"bahasa_arab": 0}`), &in))
	require.NotNil(t, in.BahasaArab)
	assert.Equal(t, 0, *in.BahasaArab)
	assert.Nil(t, in.AlQuranIqro)
	assert.Panics(t, func() { in.Scores() })

	b, err := json.Marshal(InputOf(s))
	require.NoError(t, err)
	var back Scores
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, s, back)
}
