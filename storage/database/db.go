package database

import (
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/rapor-tpq/rapor/core"
	appfs "github.com/rapor-tpq/rapor/fs"
)

const (
	EnginePostgres = "postgres"
	EngineSqlite   = "sqlite"

	MemoryPath = ":memory:"
)

var gooseDialects = map[string]string{
	EnginePostgres: "postgres",
	EngineSqlite:   "sqlite3",
}

func init() {
	sqlx.BindDriver(EngineSqlite, sqlx.QUESTION)
}

func openPostgres(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   EnginePostgres,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return sqlx.Open(EnginePostgres, u.String())
}

// openSqlite opens the database file at p, or a private in-memory database when p is empty or MemoryPath.
func openSqlite(p string) (*sqlx.DB, error) {
	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	memory := p == "" || p == MemoryPath
	if memory {
		p = MemoryPath
	} else {
		pragmas += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sqlx.Open(EngineSqlite, p+"?"+pragmas)
	if err != nil {
		return nil, err
	}
	if memory {
		// every connection to :memory: is a new, empty database
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	}
	return db, nil
}

// Open opens the configured database and waits for it to answer.
func Open(conf *core.Config) (*sqlx.DB, error) {
	var db *sqlx.DB
	var err error

	switch conf.Database.Engine {
	case EnginePostgres:
		db, err = openPostgres(conf.Database.Name, false, conf)
	case EngineSqlite:
		db, err = openSqlite(conf.Database.Path)
	default:
		return nil, errors.Errorf("unsupported database engine %q", conf.Database.Engine)
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func exists(db *sqlx.DB, query, name string) (bool, error) {
	var found bool
	rows, err := db.Query(query, name)
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err = rows.Scan(&found); err != nil {
			return false, err
		}
	}
	return found, rows.Err()
}

func createAppUser(db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	found, err := exists(db, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", conf.Database.User, conf.Database.Password)
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sqlx.DB, conf *core.Config) error {
	found, err := exists(db, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.Exec(fmt.Sprintf("CREATE DATABASE %s", conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the postgres app user and database. It is a no-op for sqlite,
// whose database file is created on open.
func CreateIfNotExist(conf *core.Config) error {
	if conf.Database.Engine != EnginePostgres {
		return nil
	}

	// connect as admin
	db, err := openPostgres("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()
	if err = ping(db); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(db, conf); err != nil {
		return err
	}

	// create DB as app user
	appDB, err := openPostgres("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = appDB.Close() }()
	return createDB(appDB, conf)
}

// MigrationsDir returns the directory of the engine's migrations inside appfs.FS.
func MigrationsDir(engine string) string {
	return path.Join(appfs.MigrationsDir, engine)
}

// RunMigrations runs the goose command on the embedded migrations of engine.
func RunMigrations(command string, db *sqlx.DB, engine string, args ...string) error {
	dialect, ok := gooseDialects[engine]
	if !ok {
		return errors.Errorf("unsupported database engine %q", engine)
	}
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return errors.Wrap(err, "setting migrations dialect")
	}
	return goose.Run(command, db.DB, MigrationsDir(engine), args...)
}

// Migrate applies every pending migration.
func Migrate(db *sqlx.DB, engine string) error {
	if err := RunMigrations("up", db, engine); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
