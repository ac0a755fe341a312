package camera

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/krau/konaframe/analyzer"
)

var imageExts = []string{".jpg", ".jpeg", ".png", ".webp", ".avif"}

// DirSource replays the image files of a directory as camera frames.
type DirSource struct {
	files    []string
	rotation int
	next     int
}

func NewDirSource(dir string, rotation int) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read frames dir %s", dir)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(imageExts, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return &DirSource{files: files, rotation: rotation}, nil
}

func (s *DirSource) Len() int { return len(s.files) }

// Next returns the next frame, or io.EOF once every file has been read.
func (s *DirSource) Next(ctx context.Context) (analyzer.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.files) {
		return nil, io.EOF
	}
	path := s.files[s.next]
	s.next++

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read frame %s", path)
	}
	return &EncodedFrame{
		Data:      data,
		Rotation:  s.rotation,
		Seq:       uint64(s.next),
		Timestamp: time.Now(),
		Source:    path,
	}, nil
}
