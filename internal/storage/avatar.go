// Package storage stores uploaded avatar images as fixed-size thumbnails.
package storage

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

// ErrUnsupportedImage is returned for uploads that are not JPEG or PNG.
var ErrUnsupportedImage = errors.New("unsupported image type")

// ThumbnailSize bounds both dimensions of a stored avatar in pixels.
const ThumbnailSize = 125

// AvatarStore writes resized avatars into a directory and hands back the
// stored filename.
type AvatarStore struct {
	dir string
	log *logrus.Logger
}

// NewAvatarStore initializes the store, creating the directory if needed.
func NewAvatarStore(dir string, log *logrus.Logger) (*AvatarStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create avatar dir: %w", err)
	}
	return &AvatarStore{dir: dir, log: log}, nil
}

// Save decodes the upload, scales it to fit within ThumbnailSize on both
// axes and writes it under a random filename, which it returns.
func (s *AvatarStore) Save(file io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == ".jpeg" {
		// Collapse to ".jpg" so stored names keep a fixed 40-character
		// length, the width of users.image_file.
		ext = ".jpg"
	}

	var (
		decoded image.Image
		err     error
	)
	switch ext {
	case ".jpg":
		decoded, err = jpeg.Decode(file)
	case ".png":
		decoded, err = png.Decode(file)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, ext)
	}
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := thumbnail(decoded)

	name := uuid.NewString() + ext
	out, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create avatar file: %w", err)
	}
	defer out.Close()

	switch ext {
	case ".jpg":
		err = jpeg.Encode(out, thumb, nil)
	case ".png":
		err = png.Encode(out, thumb)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	s.log.Infof("Avatar stored: %s", name)
	return name, nil
}

// Remove deletes a stored avatar. A missing file is not an error, so removal
// after a failed profile update and removal of an already-gone file both
// stay quiet.
func (s *AvatarStore) Remove(name string) {
	if name == "" {
		return
	}
	if err := os.Remove(filepath.Join(s.dir, filepath.Base(name))); err != nil && !os.IsNotExist(err) {
		s.log.Errorf("Failed to remove avatar %s: %v", name, err)
	}
}

// thumbnail scales an image down to fit ThumbnailSize, preserving the
// aspect ratio. Images already small enough pass through unscaled.
func thumbnail(src image.Image) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= ThumbnailSize && h <= ThumbnailSize {
		return src
	}

	ratio := float64(ThumbnailSize) / float64(w)
	if h > w {
		ratio = float64(ThumbnailSize) / float64(h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*ratio), int(float64(h)*ratio)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
