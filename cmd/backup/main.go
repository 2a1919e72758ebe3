package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"time"

	"github.com/kelseyhightower/envconfig"

	"paper-radar/storage"
)

// BackupConfig is the standalone environment of the backup job; it runs as
// a cron container next to the API and shares no code path with it.
type BackupConfig struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	BackupBucket    string `envconfig:"BACKUP_S3_BUCKET" required:"true"`
	BackupEndpoint  string `envconfig:"BACKUP_S3_ENDPOINT" required:"true"`
	BackupAccessKey string `envconfig:"BACKUP_S3_ACCESS_KEY" required:"true"`
	BackupSecretKey string `envconfig:"BACKUP_S3_SECRET_KEY" required:"true"`
	BackupRegion    string `envconfig:"BACKUP_S3_REGION" required:"true"`
	KeepBackups     int    `envconfig:"KEEP_BACKUPS" default:"4"`
}

func main() {
	log.Println("Starting backup run...")

	var cfg BackupConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	dumpData, err := createDump(cfg)
	if err != nil {
		log.Fatalf("Failed to create database dump: %v", err)
	}

	client, err := storage.NewClient(ctx, storage.Settings{
		Endpoint:  cfg.BackupEndpoint,
		Region:    cfg.BackupRegion,
		AccessKey: cfg.BackupAccessKey,
		SecretKey: cfg.BackupSecretKey,
		Bucket:    cfg.BackupBucket,
	})
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}

	fileName := fmt.Sprintf("backup-%s.sql.gz", time.Now().UTC().Format("2006-01-02T15-04-05Z"))
	if err := storage.Upload(ctx, client, cfg.BackupBucket, fileName, dumpData); err != nil {
		log.Fatalf("Failed to upload backup: %v", err)
	}
	log.Printf("Backup uploaded to s3://%s/%s", cfg.BackupBucket, fileName)

	deleted, err := storage.RotateOldest(ctx, client, cfg.BackupBucket, cfg.KeepBackups)
	if err != nil {
		log.Fatalf("Failed to rotate old backups: %v", err)
	}
	for _, key := range deleted {
		log.Printf("Deleted old backup: %s", key)
	}

	log.Println("Backup run finished.")
}

func createDump(cfg BackupConfig) ([]byte, error) {
	cmd := exec.Command("pg_dump",
		"-h", cfg.DBHost,
		"-U", cfg.DBUser,
		"-d", cfg.DBName,
		"-w", // password comes in via PGPASSWORD
	)
	cmd.Env = append(os.Environ(), fmt.Sprintf("PGPASSWORD=%s", cfg.DBPassword))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	if _, err := io.Copy(gzipWriter, stdout); err != nil {
		return nil, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}
	if err := cmd.Wait(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
