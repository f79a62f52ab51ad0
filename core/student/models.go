package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rapor-tpq/rapor/core"
	"github.com/rapor-tpq/rapor/core/assessment"
)

// Student is the assessment record of a pupil. Average and Category are always the Scorer's
// output for Scores.
type Student struct {
	ID        int                 `json:"id"`
	Name      string              `json:"name"`
	Class     string              `json:"class"`
	Scores    assessment.Scores   `json:"scores"`
	Average   float64             `json:"average"`
	Category  assessment.Category `json:"category"`
	ParentID  int                 `json:"parent_id"`
	CreatedAt time.Time           `json:"created_at"` // UTC
	UpdatedAt time.Time           `json:"updated_at"` // UTC
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name     string                 `json:"name" validate:"required"`
	Class    string                 `json:"class" validate:"required"`
	Scores   assessment.ScoresInput `json:"scores"`
	ParentID int                    `json:"parent_id" validate:"required,min=1"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Class = core.CleanString(ns.Class)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Nil or empty fields keep their current value. Scores, when given, must hold all twelve subjects.
type UpdateStudent struct {
	Name     string                  `json:"name"`
	Class    string                  `json:"class"`
	Scores   *assessment.ScoresInput `json:"scores"`
	ParentID int                     `json:"parent_id" validate:"omitempty,min=1"`
}

func (us *UpdateStudent) Validate(orig Student, validate *validator.Validate) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if class := core.CleanString(us.Class); class != "" {
		us.Class = class
	} else {
		us.Class = orig.Class
	}
	if us.Scores == nil {
		scores := assessment.InputOf(orig.Scores)
		us.Scores = &scores
	}
	if us.ParentID == 0 {
		us.ParentID = orig.ParentID
	}
	return validate.Struct(us)
}

type QueryFilter struct {
	ParentID int    `query:"parent_id"`
	Class    string `query:"class"`
	Category string `query:"category"`
	Search   string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Class = core.CleanString(qf.Class)
	qf.Category = core.CleanString(qf.Category)
	qf.Search = core.CleanString(qf.Search)
}

// ReportData is the template data of the student_report email.
type ReportData struct {
	ParentName          string
	StudentName         string
	Class               string
	Average             float64
	Category            assessment.Category
	CategoryDescription string
	Scores              []SubjectScore
}

type SubjectScore struct {
	Subject string
	Score   int
}

func newReportData(parentName string, s Student) ReportData {
	names := assessment.FeatureNames()
	values := s.Scores.Values()
	scores := make([]SubjectScore, len(names))
	for i, name := range names {
		scores[i] = SubjectScore{Subject: name, Score: values[i]}
	}
	return ReportData{
		ParentName:          parentName,
		StudentName:         s.Name,
		Class:               s.Class,
		Average:             s.Average,
		Category:            s.Category,
		CategoryDescription: s.Category.Description(),
		Scores:              scores,
	}
}
