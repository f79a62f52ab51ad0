package assessment

// SchemaVersion identifies the feature contract below. Version 1 was the 4-field stub schema.
const SchemaVersion = 2

// NumFeatures is the number of subject scores in a ScoreVector.
const NumFeatures = 12

// Feature names as spelled in datasets and model artifacts, in training order.
const (
	FeatAlQuranIqro          = "Al_Quran_Iqro"
	FeatHafalanSuratPendek   = "Hafalan_Surat_Pendek"
	FeatHafalanDoa           = "Hafalan_Doa"
	FeatHafalanAyatPilihan   = "Hafalan_Ayat_Pilihan"
	FeatBahasaArab           = "Bahasa_Arab"
	FeatBahasaInggris        = "Bahasa_Inggris"
	FeatKhatMenulis          = "Khat_Menulis"
	FeatMenggambarMewarnai   = "Menggambar_Mewarnai"
	FeatJasmaniKesehatan     = "Jasmani_Kesehatan"
	FeatKreativitasKeaktifan = "Kreativitas_Keaktifan"
	FeatUlumulQuran          = "Ulumul_Quran"
	FeatKemampuanBerbahasa   = "Kemampuan_Berbahasa"
)

// FeatureNames returns the feature names in training order. The slice is a copy.
func FeatureNames() []string {
	return []string{
		FeatAlQuranIqro,
		FeatHafalanSuratPendek,
		FeatHafalanDoa,
		FeatHafalanAyatPilihan,
		FeatBahasaArab,
		FeatBahasaInggris,
		FeatKhatMenulis,
		FeatMenggambarMewarnai,
		FeatJasmaniKesehatan,
		FeatKreativitasKeaktifan,
		FeatUlumulQuran,
		FeatKemampuanBerbahasa,
	}
}

// Scores is the ScoreVector of a student: one 0-100 score per subject.
// The range is not checked here: requests come in as ScoresInput.
type Scores struct {
	AlQuranIqro          int `json:"al_quran_iqro" db:"al_quran_iqro"`
	HafalanSuratPendek   int `json:"hafalan_surat_pendek" db:"hafalan_surat_pendek"`
	HafalanDoa           int `json:"hafalan_doa" db:"hafalan_doa"`
	HafalanAyatPilihan   int `json:"hafalan_ayat_pilihan" db:"hafalan_ayat_pilihan"`
	BahasaArab           int `json:"bahasa_arab" db:"bahasa_arab"`
	BahasaInggris        int `json:"bahasa_inggris" db:"bahasa_inggris"`
	KhatMenulis          int `json:"khat_menulis" db:"khat_menulis"`
	MenggambarMewarnai   int `json:"menggambar_mewarnai" db:"menggambar_mewarnai"`
	JasmaniKesehatan     int `json:"jasmani_kesehatan" db:"jasmani_kesehatan"`
	KreativitasKeaktifan int `json:"kreativitas_keaktifan" db:"kreativitas_keaktifan"`
	UlumulQuran          int `json:"ulumul_quran" db:"ulumul_quran"`
	KemampuanBerbahasa   int `json:"kemampuan_berbahasa" db:"kemampuan_berbahasa"`
}

// NewScores builds Scores from values given in training order.
func NewScores(v [NumFeatures]int) Scores {
	return Scores{
		AlQuranIqro:          v[0],
		HafalanSuratPendek:   v[1],
		HafalanDoa:           v[2],
		HafalanAyatPilihan:   v[3],
		BahasaArab:           v[4],
		BahasaInggris:        v[5],
		KhatMenulis:          v[6],
		MenggambarMewarnai:   v[7],
		JasmaniKesehatan:     v[8],
		KreativitasKeaktifan: v[9],
		UlumulQuran:          v[10],
		KemampuanBerbahasa:   v[11],
	}
}

// Values returns the scores in training order.
func (s Scores) Values() [NumFeatures]int {
	return [NumFeatures]int{
		s.AlQuranIqro,
		s.HafalanSuratPendek,
		s.HafalanDoa,
		s.HafalanAyatPilihan,
		s.BahasaArab,
		s.BahasaInggris,
		s.KhatMenulis,
		s.MenggambarMewarnai,
		s.JasmaniKesehatan,
		s.KreativitasKeaktifan,
		s.UlumulQuran,
		s.KemampuanBerbahasa,
	}
}

// Feature returns the score of the named feature.
func (s Scores) Feature(name string) (float64, bool) {
	var v int
	switch name {
	case FeatAlQuranIqro:
		v = s.AlQuranIqro
	case FeatHafalanSuratPendek:
		v = s.HafalanSuratPendek
	case FeatHafalanDoa:
		v = s.HafalanDoa
	case FeatHafalanAyatPilihan:
		v = s.HafalanAyatPilihan
	case FeatBahasaArab:
		v = s.BahasaArab
	case FeatBahasaInggris:
		v = s.BahasaInggris
	case FeatKhatMenulis:
		v = s.KhatMenulis
	case FeatMenggambarMewarnai:
		v = s.MenggambarMewarnai
	case FeatJasmaniKesehatan:
		v = s.JasmaniKesehatan
	case FeatKreativitasKeaktifan:
		v = s.KreativitasKeaktifan
	case FeatUlumulQuran:
		v = s.UlumulQuran
	case FeatKemampuanBerbahasa:
		v = s.KemampuanBerbahasa
	default:
		return 0, false
	}
	return float64(v), true
}

// FeatureVector returns the scores as floats in the order of names.
// ok is false if any name is not a known feature.
func (s Scores) FeatureVector(names []string) (vec []float64, ok bool) {
	vec = make([]float64, len(names))
	for i, name := range names {
		if vec[i], ok = s.Feature(name); !ok {
			return nil, false
		}
	}
	return vec, true
}

// ScoresInput is the request form of Scores. Every subject is required.
type ScoresInput struct {
	AlQuranIqro          *int `json:"al_quran_iqro" validate:"required,min=0,max=100"`
	HafalanSuratPendek   *int `json:"hafalan_surat_pendek" validate:"required,min=0,max=100"`
	HafalanDoa           *int `json:"hafalan_doa" validate:"required,min=0,max=100"`
	HafalanAyatPilihan   *int `json:"hafalan_ayat_pilihan" validate:"required,min=0,max=100"`
	BahasaArab           *int `json:"bahasa_arab" validate:"required,min=0,max=100"`
	BahasaInggris        *int `json:"bahasa_inggris" validate:"required,min=0,max=100"`
	KhatMenulis          *int `json:"khat_menulis" validate:"required,min=0,max=100"`
	MenggambarMewarnai   *int `json:"menggambar_mewarnai" validate:"required,min=0,max=100"`
	JasmaniKesehatan     *int `json:"jasmani_kesehatan" validate:"required,min=0,max=100"`
	KreativitasKeaktifan *int `json:"kreativitas_keaktifan" validate:"required,min=0,max=100"`
	UlumulQuran          *int `json:"ulumul_quran" validate:"required,min=0,max=100"`
	KemampuanBerbahasa   *int `json:"kemampuan_berbahasa" validate:"required,min=0,max=100"`
}

// InputOf returns the ScoresInput holding every score of s.
func InputOf(s Scores) ScoresInput {
	v := s.Values()
	return ScoresInput{
		AlQuranIqro:          &v[0],
		HafalanSuratPendek:   &v[1],
		HafalanDoa:           &v[2],
		HafalanAyatPilihan:   &v[3],
		BahasaArab:           &v[4],
		BahasaInggris:        &v[5],
		KhatMenulis:          &v[6],
		MenggambarMewarnai:   &v[7],
		JasmaniKesehatan:     &v[8],
		KreativitasKeaktifan: &v[9],
		UlumulQuran:          &v[10],
		KemampuanBerbahasa:   &v[11],
	}
}

// Scores converts validated input. It panics on a missing score.
func (in ScoresInput) Scores() Scores {
	get := func(p *int) int {
		if p == nil {
			panic("assessment: ScoresInput used before validation")
		}
		return *p
	}
	return NewScores([NumFeatures]int{
		get(in.AlQuranIqro),
		get(in.HafalanSuratPendek),
		get(in.HafalanDoa),
		get(in.HafalanAyatPilihan),
		get(in.BahasaArab),
		get(in.BahasaInggris),
		get(in.KhatMenulis),
		get(in.MenggambarMewarnai),
		get(in.JasmaniKesehatan),
		get(in.KreativitasKeaktifan),
		get(in.UlumulQuran),
		get(in.KemampuanBerbahasa),
	})
}
