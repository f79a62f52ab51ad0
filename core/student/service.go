package student

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/rapor-tpq/rapor/core"
	"github.com/rapor-tpq/rapor/core/assessment"
	"github.com/rapor-tpq/rapor/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("student not found")

	errParentNotFound = errors.New("parent not found")
	errNotAParent     = errors.New("user is not a parent")
)

const reportTemplate = "student_report"

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Student.Name.
		QueryStudents(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		GetStudent(ctx context.Context, id int) (Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		DeleteStudent(ctx context.Context, id int) error
	}

	// ParentFinder looks up the user a student belongs to.
	ParentFinder interface {
		GetByID(ctx context.Context, id int) (user.User, error)
	}

	Service struct {
		repo    Repository
		parents ParentFinder
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, parents ParentFinder, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, parents: parents, mailSvc: mailSvc}
}

func (svc *Service) parent(ctx context.Context, id int) (user.User, error) {
	p, err := svc.parents.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, core.NewFieldValidationError("parent_id", errParentNotFound)
		}
		return user.User{}, errors.Wrap(err, "finding parent")
	}
	if !p.IsParent() {
		return user.User{}, core.NewFieldValidationError("parent_id", errNotAParent)
	}
	return p, nil
}

// Create scores and stores a new Student, then notifies the parent. ns must have been validated.
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	parent, err := svc.parent(ctx, ns.ParentID)
	if err != nil {
		return Student{}, err
	}

	now := time.Now().UTC()
	s := Student{
		Name:      ns.Name,
		Class:     ns.Class,
		Scores:    ns.Scores.Scores(),
		ParentID:  parent.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Average, s.Category = assessment.Categorize(s.Scores)

	s, err = svc.repo.CreateStudent(ctx, s)
	if err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}
	svc.notify(parent, s)
	return s, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Student, error) {
	if id <= 0 {
		return Student{}, ErrNotFound
	}
	return svc.repo.GetStudent(ctx, id)
}

// Update applies us to s, rescores it and notifies the parent. us must have been validated against s.
func (svc *Service) Update(ctx context.Context, s Student, us UpdateStudent) (Student, error) {
	parent, err := svc.parent(ctx, us.ParentID)
	if err != nil {
		return Student{}, err
	}

	s.Name = us.Name
	s.Class = us.Class
	if us.Scores != nil {
		s.Scores = us.Scores.Scores()
	}
	s.ParentID = parent.ID
	s.Average, s.Category = assessment.Categorize(s.Scores)
	s.UpdatedAt = time.Now().UTC()

	s, err = svc.repo.UpdateStudent(ctx, s)
	if err != nil {
		return Student{}, errors.Wrap(err, "updating student")
	}
	svc.notify(parent, s)
	return s, nil
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteStudent(ctx, id)
}

// notify emails the student's report to the parent, if they have an email address.
func (svc *Service) notify(parent user.User, s Student) {
	if svc.mailSvc == nil || parent.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: parent.Name, Address: parent.Email}},
		Subject:      "Laporan perkembangan " + s.Name,
		TemplateName: reportTemplate,
		TemplateData: newReportData(parent.Name, s),
	})
}
