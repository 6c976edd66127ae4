package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kweku/ai-procurement/internal/application/port"
)

// LocalFileStorage implements port.FileStorage on the local filesystem.
// References are relative paths under baseDir, prefixed with a UUID so
// repeated uploads of the same filename never collide.
type LocalFileStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalFileStorage creates a new LocalFileStorage
func NewLocalFileStorage(baseDir string, logger *zap.Logger) (*LocalFileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalFileStorage{
		baseDir: baseDir,
		logger:  logger,
	}, nil
}

// Save stores content and returns the reference it can be read back by
func (s *LocalFileStorage) Save(ctx context.Context, name string, content io.Reader) (string, error) {
	ref := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(name))
	fullPath := filepath.Join(s.baseDir, ref)

	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	file, err := os.Create(fullPath)
	if err != nil {
		s.logger.Error("Failed to create file", zap.String("path", fullPath), zap.Error(err))
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, content)
	if err != nil {
		os.Remove(fullPath)
		s.logger.Error("Failed to write file", zap.String("path", fullPath), zap.Error(err))
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("File saved",
		zap.String("ref", ref),
		zap.Int64("size", written))
	return ref, nil
}

// Open returns a reader for a previously saved reference
func (s *LocalFileStorage) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	fullPath := filepath.Join(s.baseDir, ref)

	if err := s.validatePath(fullPath); err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		s.logger.Error("Failed to open file", zap.String("ref", ref), zap.Error(err))
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Path resolves a reference to a local filesystem path
func (s *LocalFileStorage) Path(ref string) string {
	return filepath.Join(s.baseDir, ref)
}

// Exists reports whether a reference resolves to stored content
func (s *LocalFileStorage) Exists(ctx context.Context, ref string) bool {
	_, err := os.Stat(filepath.Join(s.baseDir, ref))
	return err == nil
}

// validatePath checks that the path is safe and within baseDir
func (s *LocalFileStorage) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}
	return nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// Verify interface compliance
var _ port.FileStorage = (*LocalFileStorage)(nil)
