package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/quizsmith/quizsmith-backend/internal/config"
	"github.com/quizsmith/quizsmith-backend/internal/model"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// Cover images only. The mapped extension becomes the stored filename
// suffix.
var imageExtByMIME = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// MediaService stores cover image uploads on local disk.
type MediaService struct {
	cfg      *config.Config
	activity *ActivityService
}

func NewMediaService(cfg *config.Config, activity *ActivityService) *MediaService {
	return &MediaService{cfg: cfg, activity: activity}
}

// SaveUpload writes an uploaded image under a fresh UUID filename and
// returns its URL path plus the content digest editor sessions carry
// as the image reference. The digest is computed while writing, so the
// file is read once.
func (s *MediaService) SaveUpload(ctx context.Context, authorID int, file multipart.File, header *multipart.FileHeader) (string, string, error) {
	contentType := header.Header.Get("Content-Type")
	ext, ok := imageExtByMIME[contentType]
	if !ok {
		allowed := strings.Join(slices.Sorted(maps.Keys(imageExtByMIME)), ", ")
		return "", "", fmt.Errorf("%w: %s (expected one of %s)", ErrUnsupportedFileType, contentType, allowed)
	}
	if header.Size > s.cfg.MaxUploadBytes {
		return "", "", fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, header.Size, s.cfg.MaxUploadBytes)
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", "", fmt.Errorf("prepare upload dir: %w", err)
	}

	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(s.cfg.UploadDir, name))
	if err != nil {
		return "", "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(dst, hasher), file); err != nil {
		return "", "", fmt.Errorf("store upload: %w", err)
	}
	imageID := hex.EncodeToString(hasher.Sum(nil))

	url := "/uploads/" + name
	s.activity.Emit(ctx, model.ActivityMediaUploaded, nil, &authorID, map[string]interface{}{
		"url":      url,
		"image_id": imageID,
		"bytes":    header.Size,
	})
	return url, imageID, nil
}
