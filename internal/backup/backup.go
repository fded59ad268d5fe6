package backup

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sethvargo/go-retry"

	"github.com/tandemapp/tandem/internal/model"
	"github.com/tandemapp/tandem/internal/store"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds backup manager configuration.
type Config struct {
	S3         S3Config
	DBPath     string
	Passphrase string
	Interval   time.Duration
}

// Manager takes encrypted snapshots of the database and uploads them
// to S3-compatible storage.
type Manager struct {
	mu     sync.RWMutex
	cfg    Config
	db     *sql.DB
	store  *store.BackupStore
	client s3Client
	logger *slog.Logger

	retryBase time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager. The manager is disabled when the
// S3 credentials or the passphrase are missing.
func NewManager(cfg Config, db *sql.DB, bs *store.BackupStore, logger *slog.Logger) *Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}

	m := &Manager{
		cfg:       cfg,
		db:        db,
		store:     bs,
		logger:    logger.With("component", "backup"),
		retryBase: time.Second,
	}

	if m.configured() {
		m.client = newS3Client(cfg.S3)
	}

	return m
}

func (m *Manager) configured() bool {
	return m.cfg.S3.Bucket != "" && m.cfg.S3.AccessKey != "" && m.cfg.S3.SecretKey != "" && m.cfg.Passphrase != ""
}

// Enabled returns whether the manager can run backups.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Start begins the periodic backup loop.
func (m *Manager) Start(ctx context.Context) {
	if !m.Enabled() {
		m.logger.Info("backups disabled")
		return
	}

	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.RunNow(ctx); err != nil {
					m.logger.Error("scheduled backup failed", "error", err)
				}
			}
		}
	}()
}

// Stop gracefully stops the backup loop.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// RunNow takes a snapshot, encrypts it, and uploads it immediately.
func (m *Manager) RunNow(ctx context.Context) (*model.Backup, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return nil, fmt.Errorf("backup not configured")
	}

	timestamp := time.Now().UTC().Format("2006-01-02T150405Z")
	filename := fmt.Sprintf("tandem-%s.db.enc", timestamp)
	s3Key := fmt.Sprintf("backups/%s", filename)

	record, err := m.store.Create(filename, s3Key)
	if err != nil {
		return nil, fmt.Errorf("create backup record: %w", err)
	}

	snapshot, err := m.snapshot(ctx, record.ID)
	if err != nil {
		m.store.MarkFailed(record.ID, err.Error())
		return nil, err
	}

	encrypted, err := Encrypt(snapshot, m.cfg.Passphrase)
	if err != nil {
		m.store.MarkFailed(record.ID, err.Error())
		return nil, fmt.Errorf("encrypt snapshot: %w", err)
	}

	if err := m.upload(ctx, client, bucket, s3Key, encrypted); err != nil {
		m.store.MarkFailed(record.ID, err.Error())
		return nil, err
	}

	if err := m.store.MarkUploaded(record.ID, int64(len(encrypted))); err != nil {
		return nil, fmt.Errorf("record upload: %w", err)
	}

	m.logger.Info("backup uploaded", "key", s3Key, "size", len(encrypted))
	return m.store.GetByID(record.ID)
}

// snapshot checkpoints the WAL and reads a consistent copy of the
// database file.
func (m *Manager) snapshot(ctx context.Context, backupID int64) ([]byte, error) {
	if _, err := m.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return nil, fmt.Errorf("wal checkpoint: %w", err)
	}

	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("tandem-backup-%d.db", backupID))
	defer os.Remove(tmp)

	if err := copyFile(m.cfg.DBPath, tmp); err != nil {
		return nil, fmt.Errorf("copy database: %w", err)
	}

	data, err := os.ReadFile(tmp)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// upload puts the archive to S3, retrying transient failures with
// exponential backoff.
func (m *Manager) upload(ctx context.Context, client s3Client, bucket, key string, data []byte) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(m.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upload to s3: %w", err)
	}
	return nil
}

// Download streams an encrypted backup archive from S3.
func (m *Manager) Download(ctx context.Context, backupID int64) (io.ReadCloser, int64, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return nil, 0, fmt.Errorf("backup not configured")
	}

	record, err := m.store.GetByID(backupID)
	if err != nil {
		return nil, 0, fmt.Errorf("get backup: %w", err)
	}
	if record == nil {
		return nil, 0, fmt.Errorf("backup not found")
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("download from s3: %w", err)
	}

	return result.Body, record.SizeBytes, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
