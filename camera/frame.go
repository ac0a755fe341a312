// Package camera provides frame sources that feed the analyzer.
package camera

import (
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/krau/konaframe/analyzer"
)

var ErrReleased = errors.New("frame already released")

// release counts Close calls on a frame.
type release struct {
	n atomic.Int32
}

func (r *release) Close() error {
	if r.n.Add(1) > 1 {
		return ErrReleased
	}
	return nil
}

func (r *release) Released() bool { return r.n.Load() > 0 }

func (r *release) Releases() int { return int(r.n.Load()) }

// EncodedFrame holds a compressed image (JPEG, PNG, WebP or AVIF).
type EncodedFrame struct {
	release

	Data      []byte
	Rotation  int
	Seq       uint64
	Timestamp time.Time
	Source    string
}

var _ analyzer.Frame = (*EncodedFrame)(nil)

func (f *EncodedFrame) Bytes() []byte        { return f.Data }
func (f *EncodedFrame) RotationDegrees() int { return f.Rotation }

func (f *EncodedFrame) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("seq", f.Seq),
		slog.String("source", f.Source),
		slog.Time("timestamp", f.Timestamp),
	)
}

// RGBFrame holds packed 8-bit RGB pixels, row-major with no padding.
type RGBFrame struct {
	release

	Data      []byte
	Width     int
	Height    int
	Rotation  int
	Seq       uint64
	Timestamp time.Time
}

var (
	_ analyzer.Frame     = (*RGBFrame)(nil)
	_ analyzer.Bitmapper = (*RGBFrame)(nil)
)

func (f *RGBFrame) Bytes() []byte        { return f.Data }
func (f *RGBFrame) RotationDegrees() int { return f.Rotation }

func (f *RGBFrame) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("seq", f.Seq),
		slog.Int("width", f.Width),
		slog.Int("height", f.Height),
		slog.Time("timestamp", f.Timestamp),
	)
}

func (f *RGBFrame) Bitmap() (image.Image, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, errors.Newf("invalid frame size %dx%d", f.Width, f.Height)
	}
	if want := f.Width * f.Height * 3; len(f.Data) != want {
		return nil, errors.Newf("rgb frame has %d bytes, want %d", len(f.Data), want)
	}

	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i < len(f.Data); i, j = i+3, j+4 {
		img.Pix[j] = f.Data[i]
		img.Pix[j+1] = f.Data[i+1]
		img.Pix[j+2] = f.Data[i+2]
		img.Pix[j+3] = 0xff
	}
	return img, nil
}
