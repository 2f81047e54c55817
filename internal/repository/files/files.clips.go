// FilePath: internal/repository/files/files.clips.go
package files

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/itsatony/soundscape/hub/internal/errors"
	"github.com/itsatony/soundscape/hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

const (
	soundFileExtension = ".wav"
	soundMimeType      = "audio/wav"
)

// ClipConfig holds configuration for the clip storage
type ClipConfig struct {
	BasePath string
}

// ClipRepo serves the bat call recordings the edge detector saves as
// <sync id>.wav in a flat directory
type ClipRepo struct {
	config ClipConfig
}

// NewClipRepository creates a clip repository; the directory must exist
func NewClipRepository(config ClipConfig) (*ClipRepo, error) {
	info, err := os.Stat(config.BasePath)
	if err != nil {
		return nil, errors.NewInternalError("clip directory not accessible", err)
	}
	if !info.IsDir() {
		return nil, errors.NewInternalError("clip path is not a directory", nil)
	}
	nuts.L.Infof("[ClipRepo] Serving bat clips from %s", config.BasePath)
	return &ClipRepo{config: config}, nil
}

// Get looks up a clip by name, with or without the .wav extension
func (r *ClipRepo) Get(ctx context.Context, name string) (*repository.Clip, error) {
	fileName, ok := normalizeName(name)
	if !ok {
		return nil, errors.NewValidationError("invalid clip name", nil)
	}

	info, err := os.Stat(filepath.Join(r.config.BasePath, fileName))
	if err != nil || info.IsDir() {
		return nil, errors.NewNotFoundError("clip not found", err)
	}

	return &repository.Clip{
		Name:      fileName,
		Size:      info.Size(),
		MimeType:  soundMimeType,
		CreatedAt: info.ModTime(),
	}, nil
}

// Exists reports whether a clip with that name is stored
func (r *ClipRepo) Exists(name string) bool {
	_, err := r.Get(context.Background(), name)
	return err == nil
}

// Stream copies the clip's bytes to w
func (r *ClipRepo) Stream(ctx context.Context, clip *repository.Clip, w io.Writer) error {
	f, err := os.Open(filepath.Join(r.config.BasePath, clip.Name))
	if err != nil {
		return errors.NewInternalError("failed to open clip", err)
	}
	defer f.Close()

	if _, err = io.Copy(w, f); err != nil {
		return errors.NewInternalError("failed to stream clip", err)
	}
	return nil
}

// ClipName derives the clip name from the edge's saved path
// (e.g. /bat_audio/<sync id>.wav)
func ClipName(audioPath string) string {
	if audioPath == "" {
		return ""
	}
	return filepath.Base(filepath.ToSlash(audioPath))
}

// normalizeName rejects anything that is not a bare file name
func normalizeName(name string) (string, bool) {
	if name == "" || name == "." || name == ".." {
		return "", false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", false
	}
	if strings.ToLower(filepath.Ext(name)) != soundFileExtension {
		name += soundFileExtension
	}
	return name, true
}
