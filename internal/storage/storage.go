package storage

import (
	"context"
	"io"
	"time"
)

// Row is a column->value mapping for generic writes. Slices of strings are
// stored as text arrays, other composite values as JSON.
type Row map[string]any

// ObjectStore is the media backend. Put is insert-only: writing to a path
// that already holds an object fails with ErrObjectExists.
type ObjectStore interface {
	Put(ctx context.Context, bucket, objectPath string, reader io.Reader, size int64, contentType string) error
	PublicURL(bucket, objectPath string) string
}

// RecordStore is the relational store used by the direct-write tier and the
// media linker.
type RecordStore interface {
	// Insert writes one row and returns the backend-assigned id.
	Insert(ctx context.Context, table string, row Row) (string, error)
	// InsertMany writes all rows in a single statement. Every row must carry
	// the same columns.
	InsertMany(ctx context.Context, table string, rows []Row) error
	Update(ctx context.Context, table, id string, patch Row) error
}

// ProcedureCaller invokes a stored procedure with named arguments and returns
// its scalar result as text.
type ProcedureCaller interface {
	Call(ctx context.Context, procedure string, args Row) (string, error)
}

type UserStore interface {
	CreateUser(email, password string) (string, error)
	GetUserByEmail(email string) (string, string, error)
}

// UnlinkedRecord is a content record whose denormalized media list has no
// matching association rows.
type UnlinkedRecord struct {
	ID        string
	Images    []string
	CreatedAt time.Time
}

// RepairCursor is a keyset position in (created_at, id) order. The zero
// value starts from the oldest record.
type RepairCursor struct {
	CreatedAt time.Time
	ID        string
}

func (c RepairCursor) IsZero() bool {
	return c.ID == ""
}

// RepairSource finds records the link-repair worker should revisit, oldest
// first, strictly after the cursor.
type RepairSource interface {
	ListUnlinkedRecords(ctx context.Context, table, kind string, after RepairCursor, limit int) ([]UnlinkedRecord, error)
}
