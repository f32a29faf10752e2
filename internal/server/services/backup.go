package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/nexakey/internal/common"
	sc "github.com/dmitrijs2005/nexakey/internal/server/config"
	"github.com/dmitrijs2005/nexakey/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// BackupResult points at an uploaded vault snapshot.
type BackupResult struct {
	Key       string
	URL       string
	Items     int
	ExpiresAt time.Time
}

type backupItem struct {
	ID            string    `json:"id"`
	ItemType      string    `json:"item_type"`
	EncryptedData string    `json:"encrypted_data"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type backupSnapshot struct {
	UserID     string       `json:"user_id"`
	ExportedAt time.Time    `json:"exported_at"`
	Items      []backupItem `json:"items"`
}

// BackupService writes vault snapshots to S3-compatible storage. Payloads are
// exported exactly as stored, still encrypted by the client.
type BackupService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	now         func() time.Time
}

func NewBackupService(db *sql.DB, repomanager repomanager.RepositoryManager, config *sc.Config) *BackupService {
	return &BackupService{
		db:          db,
		repomanager: repomanager,
		config:      config,
		now:         time.Now,
	}
}

// GetBackupStorageKey returns backups/<userID>/yyyy/mm/dd/<uuid>.json.
func GetBackupStorageKey(userID string, d time.Time) string {
	return fmt.Sprintf("backups/%s/%04d/%02d/%02d/%v.json", userID, d.Year(), int(d.Month()), d.Day(), uuid.New())
}

func (s *BackupService) getS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// Export uploads a snapshot of the owner's vault and returns a presigned
// download link valid for BackupLinkValidity.
func (s *BackupService) Export(ctx context.Context, ownerID string) (*BackupResult, error) {
	if !s.config.BackupsEnabled() {
		return nil, common.ErrBackupsDisabled
	}

	items, err := s.repomanager.VaultItems(s.db).List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error listing items: %w", err)
	}

	now := s.now().UTC()
	snapshot := backupSnapshot{UserID: ownerID, ExportedAt: now, Items: make([]backupItem, 0, len(items))}
	for _, it := range items {
		snapshot.Items = append(snapshot.Items, backupItem{
			ID:            it.ID,
			ItemType:      it.ItemType,
			EncryptedData: it.EncryptedPayload,
			CreatedAt:     it.CreatedAt,
			UpdatedAt:     it.UpdatedAt,
		})
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("error encoding snapshot: %w", err)
	}

	client, err := s.getS3Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("error configuring storage: %w", err)
	}

	bucket := s.config.S3Bucket
	key := GetBackupStorageKey(ownerID, now)

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("error uploading snapshot: %w", err)
	}

	validity := s.config.BackupLinkValidity
	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(validity))
	if err != nil {
		return nil, fmt.Errorf("error presigning snapshot: %w", err)
	}

	return &BackupResult{
		Key:       key,
		URL:       req.URL,
		Items:     len(snapshot.Items),
		ExpiresAt: now.Add(validity),
	}, nil
}
