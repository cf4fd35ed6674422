package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sc "github.com/dmitrijs2005/kinkeeper/internal/server/config"
	"github.com/dmitrijs2005/kinkeeper/internal/server/models"
	"github.com/dmitrijs2005/kinkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/kinkeeper/internal/common"
	"github.com/dmitrijs2005/kinkeeper/internal/cryptox"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// presignValidity limits how long an upload/download URL stays usable.
const presignValidity = 15 * time.Minute

// DocumentUpload is the response to a new-document request: the client
// encrypts the file with DataKey locally and PUTs the ciphertext to URL.
// DataKey leaves the server exactly once, here; the store keeps only its
// envelope under the owner's user key.
type DocumentUpload struct {
	DocumentID string
	URL        string
	DataKey    []byte
}

// DocumentDownload is the response to a download request: a presigned GET
// for the ciphertext plus the recovered data key to decrypt it with.
type DocumentDownload struct {
	FileName string
	URL      string
	DataKey  []byte
}

// DocumentService manages encrypted file attachments on person records.
// Files never transit this server: clients exchange ciphertext with object
// storage directly via presigned URLs, and the per-document data key is
// wrapped under the owner's user key.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
}

func NewDocumentService(db *sql.DB, repomanager repomanager.RepositoryManager, config *sc.Config) *DocumentService {
	return &DocumentService{
		db:          db,
		repomanager: repomanager,
		config:      config,
	}
}

// GetRandomStorageKey produces a date-partitioned object key. The object key
// carries no user-supplied names; the file name stays in the database row.
func GetRandomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("documents/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *DocumentService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,     // MINIO_ROOT_USER
			s.config.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

func (s *DocumentService) getPresignedPutUrl(ctx context.Context, key string) (string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignValidity))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

func (s *DocumentService) getPresignedGetUrl(ctx context.Context, key string) (string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignValidity))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// CreateUpload registers a pending document on a person record: generates a
// fresh data key, wraps it under userKey, stores the row, and hands back a
// presigned PUT URL together with the plaintext data key.
func (s *DocumentService) CreateUpload(ctx context.Context, userID string, userKey []byte, personID, fileName string) (*DocumentUpload, error) {
	// The person must exist and belong to the caller.
	if _, err := s.repomanager.Persons(s.db).GetByID(ctx, personID, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading person: %w", err)
	}

	dataKey, err := cryptox.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("error generating data key: %w", err)
	}

	wrapped, err := cryptox.WrapKey(dataKey, userKey)
	if err != nil {
		return nil, fmt.Errorf("error wrapping data key: %w", err)
	}

	doc := &models.Document{
		PersonID:         personID,
		UserID:           userID,
		FileName:         fileName,
		StorageKey:       GetRandomStorageKey(),
		EncryptedDataKey: wrapped,
		UploadStatus:     models.UploadStatusPending,
	}

	created, err := s.repomanager.Documents(s.db).Create(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("error creating document: %w", err)
	}

	url, err := s.getPresignedPutUrl(ctx, created.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("error presigning upload: %w", err)
	}

	return &DocumentUpload{DocumentID: created.ID, URL: url, DataKey: dataKey}, nil
}

// MarkUploaded records that the client finished PUTting the ciphertext.
func (s *DocumentService) MarkUploaded(ctx context.Context, userID, id string) error {
	if err := s.repomanager.Documents(s.db).MarkUploaded(ctx, id, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error marking document uploaded: %w", err)
	}
	return nil
}

// GetDownload unwraps the document's data key under userKey and returns it
// with a presigned GET URL. A key that does not open fails the request.
func (s *DocumentService) GetDownload(ctx context.Context, userID string, userKey []byte, id string) (*DocumentDownload, error) {
	doc, err := s.repomanager.Documents(s.db).GetByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading document: %w", err)
	}
	if doc.UploadStatus != models.UploadStatusUploaded {
		return nil, common.ErrorNotFound
	}

	dataKey, err := cryptox.UnwrapKey(doc.EncryptedDataKey, userKey)
	if err != nil {
		return nil, err
	}

	url, err := s.getPresignedGetUrl(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("error presigning download: %w", err)
	}

	return &DocumentDownload{FileName: doc.FileName, URL: url, DataKey: dataKey}, nil
}

// ListByPerson returns document metadata for one person record. No keys are
// unwrapped here; metadata is not under field encryption.
func (s *DocumentService) ListByPerson(ctx context.Context, userID, personID string) ([]*models.Document, error) {
	docs, err := s.repomanager.Documents(s.db).ListByPerson(ctx, personID, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing documents: %w", err)
	}
	return docs, nil
}

// Delete removes the document row. The orphaned object is left for storage
// lifecycle rules to reap.
func (s *DocumentService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repomanager.Documents(s.db).Delete(ctx, id, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error deleting document: %w", err)
	}
	return nil
}
