package query

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "probe.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, updated_at INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func TestScalarFirstColumnFirstRow(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if _, err := db.Exec(`INSERT INTO users (name, updated_at) VALUES ('alice', 100), ('bob', 200)`); err != nil {
		t.Fatal(err)
	}

	ex := NewSQL(db)
	v, err := ex.Scalar(ctx, "", `SELECT MAX(updated_at) FROM users`, nil)
	if err != nil {
		t.Fatal(err)
	}
	n, ok := v.(int64)
	if !ok || n != 200 {
		t.Fatalf("got %T %v, want int64 200", v, v)
	}
}

func TestScalarWithArgs(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if _, err := db.Exec(`INSERT INTO users (name, updated_at) VALUES ('alice', 100), ('bob', 200)`); err != nil {
		t.Fatal(err)
	}

	ex := NewSQL(db)
	v, err := ex.Scalar(ctx, "", `SELECT updated_at FROM users WHERE name = ?`, []any{"bob"})
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := v.(int64); n != 200 {
		t.Fatalf("got %v, want 200", v)
	}
}

func TestScalarNoRowsIsNilNil(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	ex := NewSQL(db)
	v, err := ex.Scalar(ctx, "", `SELECT updated_at FROM users WHERE name = 'nobody'`, nil)
	if err != nil {
		t.Fatalf("no rows must not error: %v", err)
	}
	if v != nil {
		t.Fatalf("got %v, want nil", v)
	}
}

func TestScalarNullColumnIsNil(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	ex := NewSQL(db)
	// MAX over an empty table yields a single NULL row.
	v, err := ex.Scalar(ctx, "", `SELECT MAX(updated_at) FROM users`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("got %v, want nil", v)
	}
}

func TestScalarNamedConnections(t *testing.T) {
	ctx := context.Background()
	primary := openTestDB(t)
	replica := openTestDB(t)
	if _, err := primary.Exec(`INSERT INTO users (name, updated_at) VALUES ('alice', 1)`); err != nil {
		t.Fatal(err)
	}
	if _, err := replica.Exec(`INSERT INTO users (name, updated_at) VALUES ('alice', 1), ('bob', 2)`); err != nil {
		t.Fatal(err)
	}

	ex := NewSQL(primary).Register("replica", replica)

	v, err := ex.Scalar(ctx, "", `SELECT COUNT(*) FROM users`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := v.(int64); n != 1 {
		t.Fatalf("default connection: got %v, want 1", v)
	}

	v, err = ex.Scalar(ctx, "replica", `SELECT COUNT(*) FROM users`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := v.(int64); n != 2 {
		t.Fatalf("named connection: got %v, want 2", v)
	}
}

func TestScalarUnknownConnection(t *testing.T) {
	ctx := context.Background()
	ex := NewSQL(openTestDB(t))

	_, err := ex.Scalar(ctx, "nope", `SELECT 1`, nil)
	if !errors.Is(err, ErrUnknownConnection) {
		t.Fatalf("want ErrUnknownConnection, got %v", err)
	}

	var xe *ExecError
	if !errors.As(err, &xe) {
		t.Fatalf("want *ExecError, got %T", err)
	}
	if xe.Connection != "nope" {
		t.Fatalf("ExecError.Connection = %q", xe.Connection)
	}
}

func TestScalarNoDefaultConnection(t *testing.T) {
	ctx := context.Background()
	ex := NewSQL(nil)

	_, err := ex.Scalar(ctx, "", `SELECT 1`, nil)
	if !errors.Is(err, ErrNoDefaultConnection) {
		t.Fatalf("want ErrNoDefaultConnection, got %v", err)
	}
}

func TestScalarSQLErrorWrapped(t *testing.T) {
	ctx := context.Background()
	ex := NewSQL(openTestDB(t))

	_, err := ex.Scalar(ctx, "", `SELECT FROM no_such`, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var xe *ExecError
	if !errors.As(err, &xe) {
		t.Fatalf("want *ExecError, got %T", err)
	}
}
