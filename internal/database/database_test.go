// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tkharbeche/musicseer/internal/config"
)

func TestOpen_DuckDBFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.DatabaseConfig{
		Driver:  DriverDuckDB,
		Path:    filepath.Join(dir, "nested", "musicseer.duckdb"),
		Threads: 1,
	}

	db, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if db.Driver() != DriverDuckDB {
		t.Errorf("Driver() = %q, want duckdb", db.Driver())
	}
	var one int
	if err := db.Conn().QueryRowContext(context.Background(), "SELECT $1::INTEGER", 1).Scan(&one); err != nil {
		t.Fatalf("query: %v", err)
	}
	if one != 1 {
		t.Errorf("got %d, want 1", one)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), &config.DatabaseConfig{Driver: "mysql"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

type recordingStore struct {
	called *[]string
	name   string
	err    error
}

func (r recordingStore) InitSchema(context.Context) error {
	*r.called = append(*r.called, r.name)
	return r.err
}

func TestInitSchema_StopsAtFirstError(t *testing.T) {
	db := NewFromConn(nil, DriverDuckDB)
	var called []string
	boom := errors.New("boom")

	err := db.InitSchema(context.Background(),
		recordingStore{&called, "artists", nil},
		recordingStore{&called, "trending", boom},
		recordingStore{&called, "library", nil},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("InitSchema() error = %v, want boom", err)
	}
	if len(called) != 2 {
		t.Errorf("called = %v, want artists and trending only", called)
	}
}

func TestWithTx_RetriesConflicts(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	db := NewFromConn(conn, DriverDuckDB)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE trending_heads").WillReturnError(errors.New("TransactionContext Error: Transaction conflict: cannot update"))
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE trending_heads").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = db.WithTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(), "UPDATE trending_heads SET version = $1", 2)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestWithTx_DoesNotRetryOtherErrors(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	db := NewFromConn(conn, DriverDuckDB)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err = db.WithTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(), "DELETE FROM trending_entries")
		return err
	})
	if !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("WithTx() error = %v, want ErrConnDone", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"postgres", &pgconn.PgError{Code: "23505"}, true},
		{"postgres other", &pgconn.PgError{Code: "23503"}, false},
		{"duckdb", errors.New(`Constraint Error: Duplicate key "name_key: radiohead" violates unique constraint`), true},
		{"other", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
