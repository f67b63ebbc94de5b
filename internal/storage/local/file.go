package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// FileProvider stores each device's slots as JSON files under a base directory.
type FileProvider struct {
	baseDir string
	logger  zerolog.Logger
}

// NewFileProvider creates a file-backed provider rooted at baseDir.
func NewFileProvider(baseDir string, logger zerolog.Logger) (*FileProvider, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local store directory %s: %w", baseDir, err)
	}

	logger = logger.With().Str("component", "local-file-store").Logger()
	logger.Info().Str("dir", baseDir).Msg("local file store initialised")

	return &FileProvider{baseDir: baseDir, logger: logger}, nil
}

// ForDevice returns the store for deviceID.
func (p *FileProvider) ForDevice(deviceID string) (Store, error) {
	if err := ValidateDeviceID(deviceID); err != nil {
		return nil, err
	}
	return &fileStore{
		dir:    filepath.Join(p.baseDir, deviceID),
		logger: p.logger.With().Str("device_id", deviceID).Logger(),
	}, nil
}

type fileStore struct {
	dir    string
	logger zerolog.Logger
}

func (s *fileStore) path(slot string) string {
	return filepath.Join(s.dir, slot+".json")
}

func (s *fileStore) Get(_ context.Context, slot string) ([]byte, error) {
	data, err := os.ReadFile(s.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("slot", slot).Msg("failed to read slot")
		return nil, fmt.Errorf("failed to read slot %s: %w", slot, err)
	}
	return data, nil
}

// Set writes to a temporary file and renames it so readers never observe a
// partially written slot.
func (s *fileStore) Set(_ context.Context, slot string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create device directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, slot+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for slot %s: %w", slot, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write slot %s: %w", slot, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", slot, err)
	}
	if err := os.Rename(tmp.Name(), s.path(slot)); err != nil {
		s.logger.Error().Err(err).Str("slot", slot).Msg("failed to replace slot")
		return fmt.Errorf("failed to replace slot %s: %w", slot, err)
	}

	s.logger.Debug().Str("slot", slot).Int("bytes", len(data)).Msg("slot written")
	return nil
}

func (s *fileStore) Remove(_ context.Context, slot string) error {
	err := os.Remove(s.path(slot))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove slot %s: %w", slot, err)
	}
	return nil
}
