package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/princekumarofficial/submission-service/internal/config"
	"github.com/princekumarofficial/submission-service/internal/storage"
	"github.com/princekumarofficial/submission-service/internal/storage/postgres/migrations"
)

const uniqueViolation = "23505"

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

type Postgres struct {
	Db *sql.DB
}

func NewPostgres(ctx context.Context, cfg *config.Config) (*Postgres, error) {
	db, err := sql.Open("postgres", cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	slog.Info("Connected to Postgres database", slog.String("dbname", cfg.PGSQL.DBName))

	pg := &Postgres{Db: db}
	if err := pg.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return pg, nil
}

// RunMigrations sets up goose with the embedded migrations and runs them
func (p *Postgres) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, p.Db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.Db.Close()
}

// Insert writes row and returns the generated id as text.
func (p *Postgres) Insert(ctx context.Context, table string, row storage.Row) (string, error) {
	if len(row) == 0 {
		return "", errors.New("insert: empty row")
	}
	columns := sortedColumns(row)

	args := make([]any, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		v, err := bindValue(row[c])
		if err != nil {
			return "", fmt.Errorf("insert %s.%s: %w", table, c, err)
		}
		args[i] = v
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING id::text`,
		pq.QuoteIdentifier(table), quoteAll(columns), strings.Join(placeholders, ", "))

	var id string
	if err := p.Db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return "", classify(fmt.Errorf("insert into %s: %w", table, err))
	}
	return id, nil
}

// InsertMany writes every row in one statement, so a constraint violation on
// any row rejects the whole batch.
func (p *Postgres) InsertMany(ctx context.Context, table string, rows []storage.Row) error {
	if len(rows) == 0 {
		return nil
	}
	columns := sortedColumns(rows[0])

	args := make([]any, 0, len(rows)*len(columns))
	tuples := make([]string, len(rows))
	for r, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("insert many into %s: row %d has %d columns, want %d", table, r, len(row), len(columns))
		}
		placeholders := make([]string, len(columns))
		for i, c := range columns {
			raw, ok := row[c]
			if !ok {
				return fmt.Errorf("insert many into %s: row %d is missing column %s", table, r, c)
			}
			v, err := bindValue(raw)
			if err != nil {
				return fmt.Errorf("insert many %s.%s: %w", table, c, err)
			}
			args = append(args, v)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		tuples[r] = "(" + strings.Join(placeholders, ", ") + ")"
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES %s`,
		pq.QuoteIdentifier(table), quoteAll(columns), strings.Join(tuples, ", "))

	if _, err := p.Db.ExecContext(ctx, query, args...); err != nil {
		return classify(fmt.Errorf("insert many into %s: %w", table, err))
	}
	return nil
}

// Update applies patch to the row with the given id. It returns
// storage.ErrNotFound when no row matched.
func (p *Postgres) Update(ctx context.Context, table, id string, patch storage.Row) error {
	if len(patch) == 0 {
		return nil
	}
	columns := sortedColumns(patch)

	args := make([]any, 0, len(columns)+1)
	sets := make([]string, len(columns))
	for i, c := range columns {
		v, err := bindValue(patch[c])
		if err != nil {
			return fmt.Errorf("update %s.%s: %w", table, c, err)
		}
		args = append(args, v)
		sets[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(c), len(args))
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`,
		pq.QuoteIdentifier(table), strings.Join(sets, ", "), len(args))

	res, err := p.Db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(fmt.Errorf("update %s: %w", table, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if n == 0 {
		return fmt.Errorf("update %s %s: %w", table, id, storage.ErrNotFound)
	}
	return nil
}

// Call invokes procedure with named arguments and returns its result as text.
func (p *Postgres) Call(ctx context.Context, procedure string, args storage.Row) (string, error) {
	names := sortedColumns(args)

	values := make([]any, len(names))
	params := make([]string, len(names))
	for i, n := range names {
		v, err := bindValue(args[n])
		if err != nil {
			return "", fmt.Errorf("call %s(%s): %w", procedure, n, err)
		}
		values[i] = v
		params[i] = fmt.Sprintf("%s => $%d", pq.QuoteIdentifier(n), i+1)
	}

	query := fmt.Sprintf(`SELECT %s(%s)::text`, pq.QuoteIdentifier(procedure), strings.Join(params, ", "))

	var result sql.NullString
	if err := p.Db.QueryRowContext(ctx, query, values...).Scan(&result); err != nil {
		return "", classify(fmt.Errorf("call %s: %w", procedure, err))
	}
	if !result.Valid || result.String == "" {
		return "", fmt.Errorf("call %s: empty result", procedure)
	}
	return result.String, nil
}

// ListUnlinkedRecords returns records that carry media locators but no rows
// in media_links for their kind, in (created_at, id) order after the cursor.
func (p *Postgres) ListUnlinkedRecords(ctx context.Context, table, kind string, after storage.RepairCursor, limit int) ([]storage.UnlinkedRecord, error) {
	args := []any{kind, limit}
	keyset := ""
	if !after.IsZero() {
		keyset = "AND (r.created_at, r.id) > ($3, $4::uuid)"
		args = append(args, after.CreatedAt, after.ID)
	}

	query := fmt.Sprintf(`
	SELECT r.id::text, r.images, r.created_at
	FROM %s r
	WHERE cardinality(r.images) > 0
	  AND NOT EXISTS (
		SELECT 1 FROM media_links l
		WHERE l.content_kind = $1 AND l.record_id = r.id::text
	  )
	  %s
	ORDER BY r.created_at, r.id
	LIMIT $2
	`, pq.QuoteIdentifier(table), keyset)

	rows, err := p.Db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list unlinked %s: %w", table, err)
	}
	defer rows.Close()

	var out []storage.UnlinkedRecord
	for rows.Next() {
		var rec storage.UnlinkedRecord
		if err := rows.Scan(&rec.ID, pq.Array(&rec.Images), &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan unlinked %s: %w", table, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateUser(email, password string) (string, error) {
	var userID int
	query := `
	INSERT INTO users (email, password)
	VALUES ($1, $2)
	RETURNING id
	`

	err := p.Db.QueryRow(query, email, password).Scan(&userID)
	if err != nil {
		return "", classify(err)
	}

	return fmt.Sprintf("%d", userID), nil
}

func (p *Postgres) GetUserByEmail(email string) (string, string, error) {
	var userID int
	var hashedPassword string
	query := `
	SELECT id, password FROM users WHERE email = $1
	`

	err := p.Db.QueryRow(query, email).Scan(&userID, &hashedPassword)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", storage.ErrNotFound
	}
	if err != nil {
		return "", "", err
	}

	return fmt.Sprintf("%d", userID), hashedPassword, nil
}

// classify maps driver errors onto storage sentinels by SQLSTATE.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %w", storage.ErrUniqueViolation, err)
	}
	return err
}

func bindValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string, bool, int, int32, int64, float64, time.Time:
		return val, nil
	case *string:
		if val == nil {
			return nil, nil
		}
		return *val, nil
	case *float64:
		if val == nil {
			return nil, nil
		}
		return *val, nil
	case []string:
		if val == nil {
			val = []string{}
		}
		return pq.Array(val), nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return string(b), nil
	}
}

func sortedColumns(row storage.Row) []string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = pq.QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}
