package postgres

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestIsNotFound(t *testing.T) {
	if !isNotFound(sql.ErrNoRows) {
		t.Fatal("expected true for sql.ErrNoRows")
	}
	if !isNotFound(fmt.Errorf("get match analysis: %w", sql.ErrNoRows)) {
		t.Fatal("expected true for wrapped sql.ErrNoRows")
	}
	if isNotFound(fmt.Errorf("connection refused")) {
		t.Fatal("expected false for unrelated error")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
	if !isUniqueViolation(dup) {
		t.Fatal("expected true for 23505")
	}
	if !isUniqueViolation(fmt.Errorf("save match analysis: %w", dup)) {
		t.Fatal("expected true for wrapped 23505")
	}
	if isUniqueViolation(&pq.Error{Code: "40001"}) {
		t.Fatal("expected false for serialization failure")
	}
	if isUniqueViolation(sql.ErrNoRows) {
		t.Fatal("expected false for non-pq error")
	}
}
