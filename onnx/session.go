package onnx

import (
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/krau/konaframe/analyzer"
	ort "github.com/yalue/onnxruntime_go"
)

// Session runs a single-input, single-output model through onnxruntime.
// The input and output tensors are allocated per call.
type Session struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string

	closeOnce sync.Once
	closeErr  error
}

var _ analyzer.Session = (*Session)(nil)

// OpenSession loads the model at modelPath. Init must have been called.
func OpenSession(modelPath string, threads int) (*Session, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, errors.Wrap(err, "get model input/output info")
	}
	in, out, err := pickIO(inputs, outputs)
	if err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "create session options")
	}
	defer func() {
		if err := opts.Destroy(); err != nil {
			slog.Warn("Failed to destroy session options", slog.String("error", err.Error()))
		}
	}()
	if threads > 0 {
		if err := opts.SetIntraOpNumThreads(threads); err != nil {
			return nil, errors.Wrap(err, "set intra-op threads")
		}
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{in.Name}, []string{out.Name}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "create onnxruntime session")
	}

	slog.Info("Loaded model",
		slog.String("path", modelPath),
		slog.String("input", in.Name),
		slog.String("input_shape", in.Dimensions.String()),
		slog.String("output", out.Name),
		slog.String("output_shape", out.Dimensions.String()),
	)
	return &Session{session: session, inputName: in.Name, outputName: out.Name}, nil
}

func pickIO(inputs, outputs []ort.InputOutputInfo) (ort.InputOutputInfo, ort.InputOutputInfo, error) {
	if len(inputs) == 0 {
		return ort.InputOutputInfo{}, ort.InputOutputInfo{}, errors.New("model declares no inputs")
	}
	if len(outputs) != 1 {
		return ort.InputOutputInfo{}, ort.InputOutputInfo{},
			errors.Newf("expected exactly one output, model declares %d", len(outputs))
	}
	return inputs[0], outputs[0], nil
}

func (s *Session) InputNames() []string {
	return []string{s.inputName}
}

func (s *Session) NewTensor(shape []int64, data []float32) (analyzer.Tensor, error) {
	t, err := ort.NewTensor(ort.NewShape(shape...), data)
	if err != nil {
		return nil, errors.Wrapf(err, "create tensor %v", shape)
	}
	return t, nil
}

func (s *Session) Run(inputName string, input analyzer.Tensor) ([]analyzer.Value, error) {
	if inputName != s.inputName {
		return nil, errors.Newf("unknown input %q, session input is %q", inputName, s.inputName)
	}
	in, ok := input.(ort.Value)
	if !ok {
		return nil, errors.Newf("input %T is not an onnxruntime value", input)
	}

	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{in}, outputs); err != nil {
		return nil, errors.Wrap(err, "run session")
	}

	values := make([]analyzer.Value, 0, len(outputs))
	for _, o := range outputs {
		if o != nil {
			values = append(values, wrap(o))
		}
	}
	return values, nil
}

// Close destroys the session. Only the first call has an effect.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.session.Destroy()
	})
	return s.closeErr
}

type value struct {
	v ort.Value
}

func (v value) Shape() []int64 { return v.v.GetShape() }
func (v value) Destroy() error { return v.v.Destroy() }

type float32Value struct {
	value
	t *ort.Tensor[float32]
}

func (v float32Value) Float32Data() []float32 { return v.t.GetData() }

// wrap exposes float data only for float32 tensors so the analyzer can
// reject anything else.
func wrap(o ort.Value) analyzer.Value {
	if t, ok := o.(*ort.Tensor[float32]); ok {
		return float32Value{value: value{v: o}, t: t}
	}
	return value{v: o}
}
