package testutil

import (
	"context"
	"io"
	"log"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rapor-tpq/rapor/core"
	"github.com/rapor-tpq/rapor/core/assessment"
	"github.com/rapor-tpq/rapor/core/student"
	"github.com/rapor-tpq/rapor/core/user"
	logsvc "github.com/rapor-tpq/rapor/services/logger"
	"github.com/rapor-tpq/rapor/storage/database"
)

// NewLogger returns a silent logger that never reports to Rollbar.
func NewLogger() core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), core.NewTestConfig())
	logger.Enable(false)
	return logger
}

// PrepareDB returns a migrated, private in-memory database closed at the end of the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := core.NewTestConfig()

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, conf.Database.Engine); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd == "" {
		pwd = "unused"
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateStudent stores a student scored the way student.Service does.
func CreateStudent(
	t *testing.T,
	repo student.Repository,
	name, class string,
	parentID int,
	scores [assessment.NumFeatures]int,
) student.Student {
	t.Helper()
	now := time.Now().UTC()
	s := student.Student{
		Name:      name,
		Class:     class,
		Scores:    assessment.NewScores(scores),
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Average, s.Category = assessment.Categorize(s.Scores)

	s, err := repo.CreateStudent(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

// Uniform returns a score vector with every subject set to v.
func Uniform(v int) [assessment.NumFeatures]int {
	var scores [assessment.NumFeatures]int
	for i := range scores {
		scores[i] = v
	}
	return scores
}

// Input returns v as a complete request ScoreVector.
func Input(v [assessment.NumFeatures]int) assessment.ScoresInput {
	return assessment.InputOf(assessment.NewScores(v))
}

// ScoresRequired returns the validation errors of a request that has no score, merged with extra.
func ScoresRequired(extra map[string]string) map[string]string {
	errs := make(map[string]string, assessment.NumFeatures+len(extra))
	typ := reflect.TypeOf(assessment.ScoresInput{})
	for i := 0; i < typ.NumField(); i++ {
		name := strings.SplitN(typ.Field(i).Tag.Get("json"), ",", 2)[0]
		errs[name] = "this field is required"
	}
	for k, v := range extra {
		errs[k] = v
	}
	return errs
}
