// Package reliability holds the backup service and database maintenance
// jobs that keep an always-on deployment healthy.
package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lutivix/financeiro/internal/database"
)

const archivePrefix = "financeiro-backup-"

// remoteStore is the storage surface the backup service needs. Nil disables
// the remote leg.
type remoteStore interface {
	Upload(ctx context.Context, key string, body io.Reader) error
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// BackupService archives the transaction database. Every backup lands in
// the local directory; when a remote store is wired the archive is also
// uploaded.
type BackupService struct {
	db        *database.DB
	dbPath    string
	localDir  string
	retention int
	remote    remoteStore
	log       zerolog.Logger
}

// BackupMetadata describes the archived database.
type BackupMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum"`
}

// NewBackupService creates a backup service. remote may be nil.
func NewBackupService(db *database.DB, dbPath, localDir string, retention int, remote remoteStore, log zerolog.Logger) *BackupService {
	return &BackupService{
		db:        db,
		dbPath:    dbPath,
		localDir:  localDir,
		retention: retention,
		remote:    remote,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// Run creates a backup archive, uploads it when a remote store is
// configured, and rotates old local archives. Returns the archive path.
func (s *BackupService) Run(ctx context.Context) (string, error) {
	s.log.Info().Msg("Starting backup")
	startTime := time.Now()

	if err := os.MkdirAll(s.localDir, 0755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	// Flush the WAL so the main file is complete on its own.
	if err := s.db.WALCheckpoint("TRUNCATE"); err != nil {
		s.log.Warn().Err(err).Msg("WAL checkpoint failed, backing up anyway")
	}

	stagingDir, err := os.MkdirTemp("", "financeiro-backup-*")
	if err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	dbCopy := filepath.Join(stagingDir, "financeiro.db")
	if err := copyFile(s.dbPath, dbCopy); err != nil {
		return "", fmt.Errorf("copying database: %w", err)
	}

	info, err := os.Stat(dbCopy)
	if err != nil {
		return "", fmt.Errorf("stat database copy: %w", err)
	}
	checksum, err := calculateChecksum(dbCopy)
	if err != nil {
		return "", fmt.Errorf("checksumming database copy: %w", err)
	}

	metadata := BackupMetadata{
		Timestamp: time.Now().UTC(),
		Filename:  "financeiro.db",
		SizeBytes: info.Size(),
		Checksum:  checksum,
	}
	metadataPath := filepath.Join(stagingDir, "backup-metadata.json")
	if err := writeMetadata(metadataPath, metadata); err != nil {
		return "", fmt.Errorf("writing metadata: %w", err)
	}

	archiveName := fmt.Sprintf("%s%s.tar.gz", archivePrefix, time.Now().Format("2006-01-02-150405"))
	archivePath := filepath.Join(s.localDir, archiveName)
	if err := createArchive(archivePath, []string{dbCopy, metadataPath}); err != nil {
		return "", fmt.Errorf("creating archive: %w", err)
	}

	if s.remote != nil {
		f, err := os.Open(archivePath)
		if err != nil {
			return "", fmt.Errorf("opening archive for upload: %w", err)
		}
		uploadErr := s.remote.Upload(ctx, archiveName, f)
		f.Close()
		if uploadErr != nil {
			// The local copy exists; a failed upload degrades, not fails.
			s.log.Error().Err(uploadErr).Msg("Remote upload failed, keeping local archive")
		}
	}

	if err := s.rotateLocal(); err != nil {
		s.log.Warn().Err(err).Msg("Local backup rotation failed")
	}
	if s.remote != nil {
		if err := s.rotateRemote(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Remote backup rotation failed")
		}
	}

	archiveInfo, _ := os.Stat(archivePath)
	var sizeMB int64
	if archiveInfo != nil {
		sizeMB = archiveInfo.Size() / 1024 / 1024
	}
	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("archive", archiveName).
		Int64("size_mb", sizeMB).
		Msg("Backup completed")
	return archivePath, nil
}

// ListLocal returns local archives, newest first.
func (s *BackupService) ListLocal() ([]string, error) {
	entries, err := os.ReadDir(s.localDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, archivePrefix) && strings.HasSuffix(name, ".tar.gz") {
			names = append(names, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// rotateLocal deletes the oldest local archives beyond the retention count.
func (s *BackupService) rotateLocal() error {
	if s.retention <= 0 {
		return nil
	}
	names, err := s.ListLocal()
	if err != nil {
		return err
	}
	for _, name := range names[min(len(names), s.retention):] {
		if err := os.Remove(filepath.Join(s.localDir, name)); err != nil {
			s.log.Error().Err(err).Str("archive", name).Msg("Failed to delete old backup")
			continue
		}
		s.log.Info().Str("archive", name).Msg("Deleted old backup")
	}
	return nil
}

// rotateRemote deletes the oldest remote archives beyond the retention
// count. Archive names sort chronologically, newest first when reversed.
func (s *BackupService) rotateRemote(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}
	keys, err := s.remote.List(ctx, archivePrefix)
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	for _, key := range keys[min(len(keys), s.retention):] {
		if err := s.remote.Delete(ctx, key); err != nil {
			s.log.Error().Err(err).Str("key", key).Msg("Failed to delete old remote backup")
			continue
		}
		s.log.Info().Str("key", key).Msg("Deleted old remote backup")
	}
	return nil
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
	return out.Sync()
}

// calculateChecksum calculates SHA256 checksum of a file
func calculateChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

// writeMetadata writes backup metadata to a JSON file
func writeMetadata(path string, metadata BackupMetadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

// createArchive creates a tar.gz archive of the specified files
func createArchive(archivePath string, files []string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	defer gzipWriter.Close()

	tarWriter := tar.NewWriter(gzipWriter)
	defer tarWriter.Close()

	for _, path := range files {
		if err := addFileToArchive(tarWriter, path, filepath.Base(path)); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", path, err)
		}
	}
	return nil
}

// addFileToArchive adds a single file to a tar archive
func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}

	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}

	if _, err := io.Copy(tarWriter, file); err != nil {
		return err
	}
	return nil
}
