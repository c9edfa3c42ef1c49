package customobject

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	objectsTable    = "custom_objects"
	migrationsTable = "abandoned_carts_schema_migrations"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// SQLStore keeps custom objects in one table, on Postgres in production or
// on SQLite for local runs.
type SQLStore struct {
	db      *sql.DB
	sb      sq.StatementBuilderType
	dialect Dialect
}

func OpenPostgres(cred *Credentials) (*sql.DB, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	return db, nil
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}
	// a single writer avoids SQLITE_BUSY under concurrent upserts
	db.SetMaxOpenConns(1)
	return db, nil
}

func NewPostgresStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		db:      db,
		sb:      sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		dialect: DialectPostgres,
	}
}

func NewSQLiteStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		db:      db,
		sb:      sq.StatementBuilder.PlaceholderFormat(sq.Question),
		dialect: DialectSQLite,
	}
}

func (p *SQLStore) RunMigrations(migrationsPath string) error {
	var (
		driver database.Driver
		err    error
	)
	switch p.dialect {
	case DialectSQLite:
		driver, err = sqlite.WithInstance(p.db, &sqlite.Config{MigrationsTable: migrationsTable})
	default:
		driver, err = postgres.WithInstance(p.db, &postgres.Config{MigrationsTable: migrationsTable})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		string(p.dialect),
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (p *SQLStore) Get(ctx context.Context, container, key string) (*Object, error) {
	query, args, err := p.sb.
		Select("value", "version", "created_at", "last_modified_at").
		From(objectsTable).
		Where(sq.Eq{"container": container, "key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	obj := Object{Container: container, Key: key}
	var value []byte
	err = p.db.QueryRowContext(ctx, query, args...).
		Scan(&value, &obj.Version, &obj.CreatedAt, &obj.LastModifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get custom object %s/%s: %w", container, key, err)
	}
	obj.Value = value

	return &obj, nil
}

func (p *SQLStore) Upsert(ctx context.Context, container, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal custom object value failed: %w", err)
	}

	query, args, err := p.sb.
		Insert(objectsTable).
		Columns("container", "key", "value").
		Values(container, key, string(raw)).
		Suffix("ON CONFLICT (container, key) DO UPDATE SET " +
			"value = EXCLUDED.value, " +
			"version = custom_objects.version + 1, " +
			"last_modified_at = CURRENT_TIMESTAMP").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert custom object %s/%s: %w", container, key, err)
	}

	return nil
}

func (p *SQLStore) List(ctx context.Context, container string, offset, limit int) ([]Object, int, error) {
	countQuery, countArgs, err := p.sb.
		Select("COUNT(*)").
		From(objectsTable).
		Where(sq.Eq{"container": container}).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}

	var total int
	if err := p.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count custom objects: %w", err)
	}

	query, args, err := p.sb.
		Select("key", "value", "version", "created_at", "last_modified_at").
		From(objectsTable).
		Where(sq.Eq{"container": container}).
		OrderBy("key").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list custom objects: %w", err)
	}
	defer rows.Close()

	var objects []Object
	for rows.Next() {
		obj := Object{Container: container}
		var value []byte
		if err := rows.Scan(&obj.Key, &value, &obj.Version, &obj.CreatedAt, &obj.LastModifiedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan custom object: %w", err)
		}
		obj.Value = value
		objects = append(objects, obj)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}

	return objects, total, nil
}

func (p *SQLStore) Close() error {
	return p.db.Close()
}
