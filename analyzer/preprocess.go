package analyzer

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/cockroachdb/errors"
	"github.com/disintegration/imaging"
	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/webp"
)

var (
	ImageNetMean = [3]float32{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Normalizer turns an upright ImageSize x ImageSize bitmap into a channel-first buffer.
type Normalizer interface {
	Normalize(img image.Image) ([]float32, error)
}

// MeanStd scales pixels to [0,1] and standardises each channel.
type MeanStd struct {
	Mean [3]float32
	Std  [3]float32
}

func (n MeanStd) Normalize(img image.Image) ([]float32, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	for c := range Channels {
		if n.Std[c] == 0 {
			return nil, errors.Newf("zero std for channel %d", c)
		}
	}

	out := make([]float32, Channels*w*h)
	rBase := 0
	gBase := w * h
	bBase := 2 * w * h

	for y := range h {
		for x := range w {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			fr := float32(r) / 65535.0
			fg := float32(g) / 65535.0
			fb := float32(bl) / 65535.0

			out[rBase] = (fr - n.Mean[0]) / n.Std[0]
			out[gBase] = (fg - n.Mean[1]) / n.Std[1]
			out[bBase] = (fb - n.Mean[2]) / n.Std[2]

			rBase++
			gBase++
			bBase++
		}
	}
	return out, nil
}

type Preprocessor struct {
	Normalizer Normalizer
}

// Preprocess decodes, resizes and rotates the frame, then normalizes it.
// Failures to obtain an upright bitmap are reported as ErrNoImage.
func (p Preprocessor) Preprocess(f Frame) ([]float32, error) {
	img, err := bitmap(f)
	if err != nil {
		return nil, err
	}

	img = imaging.Resize(img, ImageSize, ImageSize, imaging.NearestNeighbor)
	img, err = rotate(img, f.RotationDegrees())
	if err != nil {
		return nil, err
	}

	data, err := p.Normalizer.Normalize(img)
	if err != nil {
		return nil, errors.Wrap(err, "normalize")
	}
	if want := Channels * ImageSize * ImageSize; len(data) != want {
		return nil, errors.Wrapf(ErrShapeMismatch, "got %d values, want %d", len(data), want)
	}
	return data, nil
}

func bitmap(f Frame) (image.Image, error) {
	var (
		img image.Image
		err error
	)
	if bm, ok := f.(Bitmapper); ok {
		img, err = bm.Bitmap()
	} else {
		img, _, err = image.Decode(bytes.NewReader(f.Bytes()))
	}
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode frame"), ErrNoImage)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, ErrNoImage
	}
	return img, nil
}

// rotate turns the image clockwise by degrees, which must be a multiple of 90.
func rotate(img image.Image, degrees int) (image.Image, error) {
	switch ((degrees % 360) + 360) % 360 {
	case 0:
		return img, nil
	case 90:
		return imaging.Rotate270(img), nil
	case 180:
		return imaging.Rotate180(img), nil
	case 270:
		return imaging.Rotate90(img), nil
	default:
		return nil, errors.Wrapf(ErrNoImage, "unsupported rotation %d", degrees)
	}
}
