package analyzer

import (
	"image"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	ImageSize = 224
	Channels  = 3
	TopK      = 3
)

// InputShape is the only tensor shape the analyzer produces.
var InputShape = []int64{1, Channels, ImageSize, ImageSize}

var (
	ErrNoImage       = errors.New("frame has no usable image")
	ErrShapeMismatch = errors.New("preprocessed buffer has unexpected shape")
	ErrTypeMismatch  = errors.New("inference output is not a 2-D float32 matrix")
	ErrClosed        = errors.New("analyzer closed")
)

// Frame is one camera image borrowed for a single Analyze call.
type Frame interface {
	Bytes() []byte
	RotationDegrees() int
	Close() error
}

// Bitmapper is implemented by frames that already carry decoded pixels.
type Bitmapper interface {
	Bitmap() (image.Image, error)
}

type Tensor interface {
	Destroy() error
}

type Value interface {
	Shape() []int64
	Destroy() error
}

// Float32Value is a Value whose elements are float32.
type Float32Value interface {
	Value
	Float32Data() []float32
}

// Session is a loaded inference session owned by the caller.
type Session interface {
	InputNames() []string
	NewTensor(shape []int64, data []float32) (Tensor, error)
	Run(inputName string, input Tensor) ([]Value, error)
	Close() error
}

type Result struct {
	DetectedIndices []int     `json:"detected_indices"`
	DetectedScore   []float32 `json:"detected_score"`
	ProcessTimeMs   int64     `json:"process_time_ms"`
}

type Sink interface {
	OnResult(Result)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(Result)

func (f SinkFunc) OnResult(r Result) { f(r) }

type Options struct {
	Normalizer Normalizer
	Logger     *slog.Logger
	Now        func() time.Time
}
