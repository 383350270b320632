package configstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func setupPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStoreEnsureSchema(t *testing.T) {
	store, mock := setupPostgresStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS decision_instances").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresStoreCreate(t *testing.T) {
	store, mock := setupPostgresStore(t)
	mock.ExpectExec("INSERT INTO decision_instances").
		WithArgs("abc-123", "score_based", false, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inst := &Instance{ID: "abc-123", ServiceType: "score_based"}
	if err := store.Create(context.Background(), inst); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if inst.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresStoreGet(t *testing.T) {
	store, mock := setupPostgresStore(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "service_type", "configured", "record_definition", "config", "created_at", "updated_at",
	}).AddRow("abc-123", "regex_pattern", true,
		[]byte(`{"EmailAddress":"{{Contact.Field(C_EmailAddress)}}"}`),
		[]byte(`{"match_mode":"all"}`), now, now)
	mock.ExpectQuery("SELECT (.+) FROM decision_instances WHERE id").
		WithArgs("abc-123").
		WillReturnRows(rows)

	inst, err := store.Get(context.Background(), "abc-123")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if inst.ServiceType != "regex_pattern" {
		t.Errorf("ServiceType = %q", inst.ServiceType)
	}
	if !inst.Configured {
		t.Error("Configured = false")
	}
	if inst.Config["match_mode"] != "all" {
		t.Errorf("Config[match_mode] = %v", inst.Config["match_mode"])
	}
	if inst.RecordDefinition["EmailAddress"] == "" {
		t.Error("RecordDefinition not unmarshaled")
	}
}

func TestPostgresStoreGetNotFound(t *testing.T) {
	store, mock := setupPostgresStore(t)
	mock.ExpectQuery("SELECT (.+) FROM decision_instances WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := store.Get(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPostgresStoreUpdateNotFound(t *testing.T) {
	store, mock := setupPostgresStore(t)
	mock.ExpectExec("UPDATE decision_instances").
		WithArgs("missing", "", false, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Update(context.Background(), &Instance{ID: "missing"}); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPostgresStoreDelete(t *testing.T) {
	store, mock := setupPostgresStore(t)
	mock.ExpectExec("DELETE FROM decision_instances").
		WithArgs("abc-123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Delete(context.Background(), "abc-123"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	mock.ExpectExec("DELETE FROM decision_instances").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.Delete(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPostgresStoreList(t *testing.T) {
	store, mock := setupPostgresStore(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "service_type", "configured", "record_definition", "config", "created_at", "updated_at",
	}).
		AddRow("a", "email_validation", false, []byte(`{}`), []byte(`{}`), now, now).
		AddRow("b", "conditional", true, []byte(`{}`), []byte(`{}`), now, now)
	mock.ExpectQuery("SELECT (.+) FROM decision_instances ORDER BY created_at").
		WillReturnRows(rows)

	all, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(all))
	}
	if all[1].ID != "b" || !all[1].Configured {
		t.Errorf("unexpected second instance: %+v", all[1])
	}
}
