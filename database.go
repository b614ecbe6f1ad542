package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// Store is the relational data store shared by every request.
type Store struct {
	db      *sql.DB
	dialect dialect
}

func sqliteDSN(path string) string {
	params := url.Values{}
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "foreign_keys(1)")
	if path != ":memory:" {
		params.Add("_pragma", "journal_mode(WAL)")
	}
	params.Set("_time_format", "sqlite")

	if strings.Contains(path, "?") {
		return path + "&" + params.Encode()
	}
	return path + "?" + params.Encode()
}

func openStore(driver, dsn string) (*Store, error) {
	var d dialect
	switch driver {
	case "sqlite":
		d = dialectSQLite
	case "pgx":
		d = dialectPostgres
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if d == dialectSQLite {
		// A single connection serializes writers and keeps :memory: databases
		// from splitting across connections.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, dialect: d}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// q rewrites ? placeholders into the dialect's form.
func (s *Store) q(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// withTx runs fn in a transaction that commits only if fn returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	return false
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS admins (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name VARCHAR(100) NOT NULL UNIQUE,
	email VARCHAR(250) NOT NULL UNIQUE,
	password_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	author VARCHAR(100) NOT NULL,
	date DATETIME NOT NULL,
	category VARCHAR(100) NOT NULL DEFAULT '',
	slug VARCHAR(100) NOT NULL,
	image VARCHAR(250),
	title VARCHAR(250) NOT NULL,
	content TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS journals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date DATETIME NOT NULL,
	number INTEGER NOT NULL CHECK (number >= 1),
	year INTEGER NOT NULL CHECK (year BETWEEN 2000 AND 2100),
	title VARCHAR(250) NOT NULL,
	url VARCHAR(250) NOT NULL,
	image VARCHAR(250)
);

CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	admin_id INTEGER NOT NULL REFERENCES admins(id) ON DELETE CASCADE,
	expires_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS admins (
	id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	name VARCHAR(100) NOT NULL UNIQUE,
	email VARCHAR(250) NOT NULL UNIQUE,
	password_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
	id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	author VARCHAR(100) NOT NULL,
	date TIMESTAMPTZ NOT NULL DEFAULT now(),
	category VARCHAR(100) NOT NULL DEFAULT '',
	slug VARCHAR(100) NOT NULL,
	image VARCHAR(250),
	title VARCHAR(250) NOT NULL,
	content TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS journals (
	id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	date TIMESTAMPTZ NOT NULL,
	number INTEGER NOT NULL CHECK (number >= 1),
	year INTEGER NOT NULL CHECK (year BETWEEN 2000 AND 2100),
	title VARCHAR(250) NOT NULL,
	url VARCHAR(250) NOT NULL,
	image VARCHAR(250)
);

CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	admin_id BIGINT NOT NULL REFERENCES admins(id) ON DELETE CASCADE,
	expires_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

func (s *Store) initDB(ctx context.Context) error {
	schema := sqliteSchema
	if s.dialect == dialectPostgres {
		schema = postgresSchema
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	if err := s.migrateDB(ctx); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	return nil
}

func (s *Store) columnExists(ctx context.Context, table, column string) (bool, error) {
	query := `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`
	if s.dialect == dialectPostgres {
		query = `SELECT COUNT(*) FROM information_schema.columns WHERE table_name = ? AND column_name = ?`
	}

	var count int
	if err := s.db.QueryRowContext(ctx, s.q(query), table, column).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// migrateDB upgrades posts tables created before category and slug existed.
func (s *Store) migrateDB(ctx context.Context) error {
	hasCategory, err := s.columnExists(ctx, "posts", "category")
	if err != nil {
		return err
	}
	if !hasCategory {
		_, err = s.db.ExecContext(ctx, `ALTER TABLE posts ADD COLUMN category VARCHAR(100) NOT NULL DEFAULT ''`)
		if err != nil {
			return err
		}
	}

	hasSlug, err := s.columnExists(ctx, "posts", "slug")
	if err != nil {
		return err
	}
	if !hasSlug {
		if _, err = s.db.ExecContext(ctx, `ALTER TABLE posts ADD COLUMN slug VARCHAR(100)`); err != nil {
			return err
		}
		if err := s.migrateExistingSlugs(ctx); err != nil {
			return err
		}
	}

	_, err = s.db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_posts_slug ON posts(slug)`)
	return err
}

func (s *Store) migrateExistingSlugs(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title FROM posts WHERE slug IS NULL OR slug = ''`)
	if err != nil {
		return err
	}
	defer rows.Close()

	type postToUpdate struct {
		id    int64
		title string
	}

	var posts []postToUpdate
	for rows.Next() {
		var p postToUpdate
		if err := rows.Scan(&p.id, &p.title); err != nil {
			return err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, p := range posts {
			slug, err := s.ensureUniqueSlug(ctx, tx, generateSlug(p.title), p.id)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, s.q(`UPDATE posts SET slug = ? WHERE id = ?`), slug, p.id); err != nil {
				return err
			}
		}
		return nil
	})
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

func generateSlug(title string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 90 {
		slug = strings.TrimRight(slug[:90], "-")
	}
	if slug == "" {
		slug = "post"
	}
	return slug
}

// ensureUniqueSlug appends -2, -3, ... to slug until no post other than
// excludeID holds it.
func (s *Store) ensureUniqueSlug(ctx context.Context, tx *sql.Tx, slug string, excludeID int64) (string, error) {
	candidate := slug
	for i := 2; ; i++ {
		taken, err := s.slugTaken(ctx, tx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", slug, i)
	}
}

func (s *Store) slugTaken(ctx context.Context, tx *sql.Tx, slug string, excludeID int64) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM posts WHERE slug = ? AND id <> ?`), slug, excludeID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking slug: %w", err)
	}
	return count > 0, nil
}
