package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/rapor-tpq/rapor/core"
	"github.com/rapor-tpq/rapor/core/assessment"
	"github.com/rapor-tpq/rapor/core/student"
)

const scoreColumns = `al_quran_iqro, hafalan_surat_pendek, hafalan_doa, hafalan_ayat_pilihan, bahasa_arab,
	bahasa_inggris, khat_menulis, menggambar_mewarnai, jasmani_kesehatan, kreativitas_keaktifan, ulumul_quran,
	kemampuan_berbahasa`

const studentColumns = `id, name, class, ` + scoreColumns + `, average, category, parent_id, created_at, updated_at`

var studentOrderings = map[string]string{
	"id":         "id",
	"name":       "name",
	"class":      "class",
	"average":    "average",
	"category":   "category",
	"parent_id":  "parent_id",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type studentRow struct {
	ID    int    `db:"id"`
	Name  string `db:"name"`
	Class string `db:"class"`
	assessment.Scores
	Average   float64             `db:"average"`
	Category  assessment.Category `db:"category"`
	ParentID  int                 `db:"parent_id"`
	CreatedAt time.Time           `db:"created_at"`
	UpdatedAt time.Time           `db:"updated_at"`
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo studentRepository) toRow(s student.Student) studentRow {
	return studentRow{
		ID:        s.ID,
		Name:      s.Name,
		Class:     s.Class,
		Scores:    s.Scores,
		Average:   s.Average,
		Category:  s.Category,
		ParentID:  s.ParentID,
		CreatedAt: dbTime(s.CreatedAt),
		UpdatedAt: dbTime(s.UpdatedAt),
	}
}

func (repo studentRepository) fromRow(r studentRow) student.Student {
	return student.Student{
		ID:        r.ID,
		Name:      r.Name,
		Class:     r.Class,
		Scores:    r.Scores,
		Average:   r.Average,
		Category:  r.Category,
		ParentID:  r.ParentID,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (repo studentRepository) scoreArgs(r studentRow) []interface{} {
	v := r.Scores.Values()
	args := make([]interface{}, 0, len(v))
	for _, score := range v {
		args = append(args, score)
	}
	return args
}

func (repo studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	r := repo.toRow(s)
	q := repo.db.Rebind(`
		INSERT INTO student (name, class, ` + scoreColumns + `, average, category, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	args := []interface{}{r.Name, r.Class}
	args = append(args, repo.scoreArgs(r)...)
	args = append(args, r.Average, r.Category, r.ParentID, r.CreatedAt, r.UpdatedAt)
	if err := repo.db.QueryRowxContext(ctx, q, args...).Scan(&r.ID); err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return repo.fromRow(r), nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	var where []string
	var args []interface{}

	if filter.ParentID != 0 {
		where = append(where, "parent_id = ?")
		args = append(args, filter.ParentID)
	}
	if filter.Class != "" {
		where = append(where, "class = ?")
		args = append(args, filter.Class)
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		where = append(where, "LOWER(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	q := `SELECT ` + studentColumns + ` FROM student`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + core.OrderByClause(ordering, studentOrderings, "class ASC, name ASC") + ", id ASC"

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, repo.fromRow(r))
	}
	return students, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, id int) (student.Student, error) {
	var r studentRow
	q := repo.db.Rebind(`SELECT ` + studentColumns + ` FROM student WHERE id = ?`)
	if err := repo.db.GetContext(ctx, &r, q, id); err != nil {
		if err == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "finding student")
	}
	return repo.fromRow(r), nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	r := repo.toRow(s)
	q := repo.db.Rebind(`
		UPDATE student
		SET name = ?, class = ?,
			al_quran_iqro = ?, hafalan_surat_pendek = ?, hafalan_doa = ?, hafalan_ayat_pilihan = ?,
			bahasa_arab = ?, bahasa_inggris = ?, khat_menulis = ?, menggambar_mewarnai = ?,
			jasmani_kesehatan = ?, kreativitas_keaktifan = ?, ulumul_quran = ?, kemampuan_berbahasa = ?,
			average = ?, category = ?, parent_id = ?, updated_at = ?
		WHERE id = ?`)

	args := []interface{}{r.Name, r.Class}
	args = append(args, repo.scoreArgs(r)...)
	args = append(args, r.Average, r.Category, r.ParentID, r.UpdatedAt, r.ID)
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if _, err := checkAffected(res, 1, student.ErrNotFound); err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	return repo.fromRow(r), nil
}

func (repo studentRepository) DeleteStudent(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM student WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	_, err = checkAffected(res, 1, student.ErrNotFound)
	return errors.Wrap(err, "deleting student")
}
