package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/kinkeeper/internal/common"
	"github.com/dmitrijs2005/kinkeeper/internal/cryptox"
	sc "github.com/dmitrijs2005/kinkeeper/internal/server/config"
	"github.com/dmitrijs2005/kinkeeper/internal/server/models"
)

type fakeDocumentsRepo struct {
	byID map[string]*models.Document

	createErr error
	nextID    int
}

func newFakeDocumentsRepo() *fakeDocumentsRepo {
	return &fakeDocumentsRepo{byID: map[string]*models.Document{}}
}

func (f *fakeDocumentsRepo) Create(ctx context.Context, d *models.Document) (*models.Document, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	stored := *d
	f.nextID++
	stored.ID = fmt.Sprintf("d%d", f.nextID)
	f.byID[stored.ID] = &stored
	return &stored, nil
}

func (f *fakeDocumentsRepo) GetByID(ctx context.Context, id, userID string) (*models.Document, error) {
	d, ok := f.byID[id]
	if !ok || d.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return d, nil
}

func (f *fakeDocumentsRepo) ListByPerson(ctx context.Context, personID, userID string) ([]*models.Document, error) {
	var out []*models.Document
	for _, d := range f.byID {
		if d.PersonID == personID && d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocumentsRepo) MarkUploaded(ctx context.Context, id, userID string) error {
	d, ok := f.byID[id]
	if !ok || d.UserID != userID {
		return common.ErrorNotFound
	}
	d.UploadStatus = models.UploadStatusUploaded
	return nil
}

func (f *fakeDocumentsRepo) Delete(ctx context.Context, id, userID string) error {
	d, ok := f.byID[id]
	if !ok || d.UserID != userID {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

func stubPresign(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
		presignGetObject = origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "http://s3.local/put/" + *in.Key}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "http://s3.local/get/" + *in.Key}, nil
	}
}

func newDocumentTestEnv(t *testing.T) (*DocumentService, *fakeDocumentsRepo, *fakePersonsRepo, []byte, string) {
	t.Helper()
	db, _ := newSQLMockDB(t)
	t.Cleanup(func() { db.Close() })

	persons := newFakePersonsRepo()
	docs := newFakeDocumentsRepo()
	cfg := &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "kinkeeper",
	}
	s := NewDocumentService(db, &fakeRepoManager{p: persons, d: docs}, cfg)

	key := userKeyForTest(t)
	person, err := persons.Create(context.Background(), &models.Person{UserID: "u1"})
	if err != nil {
		t.Fatalf("person create error: %v", err)
	}
	return s, docs, persons, key, person.ID
}

func TestDocumentService_CreateUpload(t *testing.T) {
	stubPresign(t)
	s, docs, _, key, personID := newDocumentTestEnv(t)

	up, err := s.CreateUpload(context.Background(), "u1", key, personID, "birth-certificate.pdf")
	if err != nil {
		t.Fatalf("CreateUpload error: %v", err)
	}
	if len(up.DataKey) != cryptox.KeySize {
		t.Fatalf("data key length = %d", len(up.DataKey))
	}
	if !strings.HasPrefix(up.URL, "http://s3.local/put/documents/") {
		t.Fatalf("unexpected URL: %q", up.URL)
	}

	stored := docs.byID[up.DocumentID]
	if stored.UploadStatus != models.UploadStatusPending {
		t.Fatalf("status = %q", stored.UploadStatus)
	}
	// Stored envelope unwraps to the returned key under the user key.
	unwrapped, err := cryptox.UnwrapKey(stored.EncryptedDataKey, key)
	if err != nil || !bytes.Equal(unwrapped, up.DataKey) {
		t.Fatalf("envelope does not unwrap to the data key: %v", err)
	}
}

func TestDocumentService_CreateUpload_UnknownPerson(t *testing.T) {
	stubPresign(t)
	s, _, _, key, _ := newDocumentTestEnv(t)

	if _, err := s.CreateUpload(context.Background(), "u1", key, "missing", "x.pdf"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestDocumentService_DownloadAfterUpload(t *testing.T) {
	stubPresign(t)
	s, _, _, key, personID := newDocumentTestEnv(t)

	up, err := s.CreateUpload(context.Background(), "u1", key, personID, "photo.jpg")
	if err != nil {
		t.Fatalf("CreateUpload error: %v", err)
	}

	// Pending documents are not downloadable.
	if _, err := s.GetDownload(context.Background(), "u1", key, up.DocumentID); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("pending download: want ErrorNotFound, got %v", err)
	}

	if err := s.MarkUploaded(context.Background(), "u1", up.DocumentID); err != nil {
		t.Fatalf("MarkUploaded error: %v", err)
	}

	down, err := s.GetDownload(context.Background(), "u1", key, up.DocumentID)
	if err != nil {
		t.Fatalf("GetDownload error: %v", err)
	}
	if down.FileName != "photo.jpg" {
		t.Fatalf("file name = %q", down.FileName)
	}
	if !bytes.Equal(down.DataKey, up.DataKey) {
		t.Fatal("download key differs from upload key")
	}
	if !strings.HasPrefix(down.URL, "http://s3.local/get/") {
		t.Fatalf("unexpected URL: %q", down.URL)
	}
}

func TestDocumentService_DownloadWrongKeyFails(t *testing.T) {
	stubPresign(t)
	s, _, _, key, personID := newDocumentTestEnv(t)

	up, err := s.CreateUpload(context.Background(), "u1", key, personID, "photo.jpg")
	if err != nil {
		t.Fatalf("CreateUpload error: %v", err)
	}
	if err := s.MarkUploaded(context.Background(), "u1", up.DocumentID); err != nil {
		t.Fatalf("MarkUploaded error: %v", err)
	}

	if _, err := s.GetDownload(context.Background(), "u1", userKeyForTest(t), up.DocumentID); !errors.Is(err, common.ErrDecryptionFailed) {
		t.Fatalf("want ErrDecryptionFailed, got %v", err)
	}
}

func TestDocumentService_ListAndDelete(t *testing.T) {
	stubPresign(t)
	s, _, _, key, personID := newDocumentTestEnv(t)

	up, err := s.CreateUpload(context.Background(), "u1", key, personID, "a.pdf")
	if err != nil {
		t.Fatalf("CreateUpload error: %v", err)
	}

	docs, err := s.ListByPerson(context.Background(), "u1", personID)
	if err != nil || len(docs) != 1 {
		t.Fatalf("ListByPerson: %d docs, err=%v", len(docs), err)
	}

	// Cross-user access is invisible.
	if err := s.Delete(context.Background(), "u2", up.DocumentID); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("cross-user delete: want ErrorNotFound, got %v", err)
	}
	if err := s.Delete(context.Background(), "u1", up.DocumentID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	docs, err = s.ListByPerson(context.Background(), "u1", personID)
	if err != nil || len(docs) != 0 {
		t.Fatalf("after delete: %d docs, err=%v", len(docs), err)
	}
}

func TestDocumentService_PresignError(t *testing.T) {
	stubPresign(t)
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	s, _, _, key, personID := newDocumentTestEnv(t)

	if _, err := s.CreateUpload(context.Background(), "u1", key, personID, "x.pdf"); err == nil {
		t.Fatal("expected presign error")
	}
}
