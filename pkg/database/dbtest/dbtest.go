// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"context"
	"strings"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"github.com/jordanlanch/prospectroute/pkg/database"
	_ "github.com/mattn/go-sqlite3"
)

// Open returns a fresh database named after the running test.
func Open(t testing.TB) *database.Client {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	client, err := database.Open(context.Background(), dialect.SQLite, "file:"+name+"?mode=memory&cache=shared&_fk=1")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// CreateUser inserts a user row and returns its id.
func CreateUser(t testing.TB, client *database.Client, email, role string, supervisorID *int) int {
	t.Helper()

	var supervisor any
	if supervisorID != nil {
		supervisor = *supervisorID
	}
	ib := client.Builder().Insert("users").
		Columns("email", "name", "role", "supervisor_id", "created_at").
		Values(email, strings.Split(email, "@")[0], role, supervisor, time.Now().UTC())
	id, err := client.InsertReturningID(context.Background(), client.DB(), ib)
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return id
}
