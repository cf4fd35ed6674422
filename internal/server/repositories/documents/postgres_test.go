package documents

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/kinkeeper/internal/common"
	"github.com/dmitrijs2005/kinkeeper/internal/cryptox"
	"github.com/dmitrijs2005/kinkeeper/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func testEnvelope(t *testing.T) *cryptox.Envelope {
	t.Helper()
	return &cryptox.Envelope{
		IV:         make([]byte, cryptox.IVSize),
		Ciphertext: []byte("ct"),
		AuthTag:    make([]byte, cryptox.TagSize),
	}
}

func envelopeValue(t *testing.T, e *cryptox.Envelope) any {
	t.Helper()
	v, err := e.Value()
	if err != nil {
		t.Fatalf("envelope Value error: %v", err)
	}
	return v
}

const selectQuery = `(?s)^\s*SELECT\s+id,\s*person_id,\s*user_id,\s*file_name,\s*storage_key,\s*encrypted_data_key,\s*upload_status,\s*created_at\s+FROM\s+documents\s+WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2\s*$`

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+documents\s*\(person_id,\s*user_id,\s*file_name,\s*storage_key,\s*encrypted_data_key,\s*upload_status\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*RETURNING\s+id,\s*created_at\s*$`
	wrapped := testEnvelope(t)
	rows := sqlmock.NewRows([]string{"id", "created_at"}).AddRow("d-1", time.Now())
	mock.ExpectQuery(q).
		WithArgs("p-1", "u-1", "scan.pdf", "documents/2026/1/1/key", envelopeValue(t, wrapped), models.UploadStatusPending).
		WillReturnRows(rows)

	doc := &models.Document{
		PersonID:         "p-1",
		UserID:           "u-1",
		FileName:         "scan.pdf",
		StorageKey:       "documents/2026/1/1/key",
		EncryptedDataKey: wrapped,
		UploadStatus:     models.UploadStatusPending,
	}
	got, err := repo.Create(context.Background(), doc)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "d-1" {
		t.Fatalf("unexpected document: %+v", got)
	}
}

func TestGetByID_FoundAndNotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "person_id", "user_id", "file_name", "storage_key", "encrypted_data_key", "upload_status", "created_at"}).
		AddRow("d-1", "p-1", "u-1", "scan.pdf", "sk", envelopeValue(t, testEnvelope(t)), models.UploadStatusUploaded, time.Now())
	mock.ExpectQuery(selectQuery).
		WithArgs("d-1", "u-1").
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "d-1", "u-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.FileName != "scan.pdf" || got.EncryptedDataKey == nil {
		t.Fatalf("unexpected document: %+v", got)
	}

	mock.ExpectQuery(selectQuery).
		WithArgs("d-x", "u-1").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "d-x", "u-1"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestListByPerson_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*SELECT\s+id,.*FROM\s+documents\s+WHERE\s+person_id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2\s+ORDER\s+BY\s+created_at\s*$`
	rows := sqlmock.NewRows([]string{"id", "person_id", "user_id", "file_name", "storage_key", "encrypted_data_key", "upload_status", "created_at"}).
		AddRow("d-1", "p-1", "u-1", "a.pdf", "sk1", envelopeValue(t, testEnvelope(t)), models.UploadStatusUploaded, time.Now()).
		AddRow("d-2", "p-1", "u-1", "b.pdf", "sk2", envelopeValue(t, testEnvelope(t)), models.UploadStatusPending, time.Now())
	mock.ExpectQuery(q).
		WithArgs("p-1", "u-1").
		WillReturnRows(rows)

	got, err := repo.ListByPerson(context.Background(), "p-1", "u-1")
	if err != nil {
		t.Fatalf("ListByPerson error: %v", err)
	}
	if len(got) != 2 || got[1].FileName != "b.pdf" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestMarkUploaded_SuccessAndNotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*UPDATE\s+documents\s+SET\s+upload_status\s*=\s*\$3\s+WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2\s*$`
	mock.ExpectExec(q).
		WithArgs("d-1", "u-1", models.UploadStatusUploaded).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkUploaded(context.Background(), "d-1", "u-1"); err != nil {
		t.Fatalf("MarkUploaded error: %v", err)
	}

	mock.ExpectExec(q).
		WithArgs("d-x", "u-1", models.UploadStatusUploaded).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.MarkUploaded(context.Background(), "d-x", "u-1"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestDelete_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+documents`).
		WillReturnError(errors.New("db down"))

	err := repo.Delete(context.Background(), "d-1", "u-1")
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
