package testutil

import (
	"context"
	"database/sql/driver"
	"io"
	"testing"
)

func TestStubDBStoresFiltersAndDeletes(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	for _, id := range []string{"p2", "p1"} {
		_, err := conn.ExecContext(ctx, "INSERT INTO projects(id, name) VALUES($1, $2) ON CONFLICT (id) DO UPDATE SET name = excluded.name",
			[]driver.NamedValue{{Value: id}, {Value: "name-" + id}})
		if err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	if _, err := conn.ExecContext(ctx, "INSERT INTO projects(id, name) VALUES($1, $2) ON CONFLICT (id) DO UPDATE SET name = excluded.name",
		[]driver.NamedValue{{Value: "p1"}, {Value: "renamed"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(conn.Tables["projects"]) != 2 {
		t.Fatalf("upsert should replace, got %v", conn.Tables["projects"])
	}

	rows, err := conn.QueryContext(ctx, "SELECT name FROM projects WHERE id = $1", []driver.NamedValue{{Value: "p1"}})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	dest := make([]driver.Value, 1)
	if err := rows.Next(dest); err != nil || dest[0] != "renamed" {
		t.Fatalf("unexpected row %v %v", dest, err)
	}
	if err := rows.Next(dest); err != io.EOF {
		t.Fatalf("expected a single filtered row, got %v", err)
	}

	rows, err = conn.QueryContext(ctx, "SELECT id FROM projects ORDER BY id", nil)
	if err != nil {
		t.Fatalf("select ordered: %v", err)
	}
	if err := rows.Next(dest); err != nil || dest[0] != "p1" {
		t.Fatalf("expected p1 first, got %v %v", dest, err)
	}

	res, err := conn.ExecContext(ctx, "DELETE FROM projects WHERE id = $1", []driver.NamedValue{{Value: "missing"}})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n, _ := res.RowsAffected(); n != 0 {
		t.Fatalf("expected zero rows affected, got %d", n)
	}
	res, err = conn.ExecContext(ctx, "DELETE FROM projects WHERE id = $1", []driver.NamedValue{{Value: "p2"}})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		t.Fatalf("expected one row affected, got %d", n)
	}
}
