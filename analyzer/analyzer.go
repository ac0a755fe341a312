package analyzer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// Analyzer classifies camera frames one at a time against a session it does
// not own, and reports the top classes to a Sink.
//
// Callers must not invoke Analyze concurrently. Close may be called from any
// goroutine and waits for an in-flight Analyze to return.
type Analyzer struct {
	session    Session
	inputName  string
	sink       Sink
	preprocess Preprocessor
	logger     *slog.Logger
	now        func() time.Time

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

func New(session Session, sink Sink, opts Options) (*Analyzer, error) {
	if session == nil {
		return nil, errors.New("nil session")
	}
	if sink == nil {
		return nil, errors.New("nil sink")
	}
	names := session.InputNames()
	if len(names) == 0 {
		return nil, errors.New("session declares no inputs")
	}

	if opts.Normalizer == nil {
		opts.Normalizer = MeanStd{Mean: ImageNetMean, Std: ImageNetStd}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Analyzer{
		session:    session,
		inputName:  names[0],
		sink:       sink,
		preprocess: Preprocessor{Normalizer: opts.Normalizer},
		logger:     opts.Logger,
		now:        opts.Now,
	}, nil
}

// Analyze runs one frame through the pipeline and releases it before returning.
// Frames without a usable image are dropped and reported as nil.
func (a *Analyzer) Analyze(f Frame) error {
	defer func() {
		if err := f.Close(); err != nil {
			a.logger.Warn("Failed to release frame", slog.String("error", err.Error()))
		}
	}()

	result, ok, err := a.process(f)
	if err != nil || !ok {
		return err
	}
	a.sink.OnResult(result)
	return nil
}

// process holds the read lock for preprocessing and inference only, so the
// sink is free to close the analyzer.
func (a *Analyzer) process(f Frame) (Result, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return Result{}, false, ErrClosed
	}

	data, err := a.preprocess.Preprocess(f)
	if err != nil {
		if errors.Is(err, ErrNoImage) {
			a.logger.Debug("Dropping frame", slog.String("error", err.Error()))
			return Result{}, false, nil
		}
		return Result{}, false, err
	}

	logits, elapsed, err := a.infer(data)
	if err != nil {
		return Result{}, false, err
	}
	return assemble(Softmax(logits), elapsed), true, nil
}

// infer binds data to the session input, runs it and returns row 0 of the
// output together with the time spent inside Run.
func (a *Analyzer) infer(data []float32) ([]float32, time.Duration, error) {
	tensor, err := a.session.NewTensor(InputShape, data)
	if err != nil {
		return nil, 0, errors.Wrap(err, "create input tensor")
	}
	defer func() {
		if err := tensor.Destroy(); err != nil {
			a.logger.Warn("Failed to destroy input tensor", slog.String("error", err.Error()))
		}
	}()

	start := a.now()
	outputs, err := a.session.Run(a.inputName, tensor)
	elapsed := a.now().Sub(start)
	defer func() {
		for _, o := range outputs {
			if o == nil {
				continue
			}
			if err := o.Destroy(); err != nil {
				a.logger.Warn("Failed to destroy output", slog.String("error", err.Error()))
			}
		}
	}()
	if err != nil {
		return nil, 0, errors.Wrap(err, "run session")
	}

	logits, err := firstRow(outputs)
	if err != nil {
		return nil, 0, err
	}
	return logits, elapsed, nil
}

func firstRow(outputs []Value) ([]float32, error) {
	if len(outputs) == 0 || outputs[0] == nil {
		return nil, errors.Wrap(ErrTypeMismatch, "session returned no output")
	}
	t, ok := outputs[0].(Float32Value)
	if !ok {
		return nil, errors.Wrapf(ErrTypeMismatch, "unexpected output type %T", outputs[0])
	}
	shape := t.Shape()
	if len(shape) != 2 || shape[0] < 1 || shape[1] < 1 {
		return nil, errors.Wrapf(ErrTypeMismatch, "unexpected output shape %v", shape)
	}
	data := t.Float32Data()
	cols := int(shape[1])
	if int64(len(data)) != shape[0]*shape[1] {
		return nil, errors.Wrapf(ErrTypeMismatch, "output has %d values for shape %v", len(data), shape)
	}

	row := make([]float32, cols)
	copy(row, data[:cols])
	return row, nil
}

func assemble(probs []float32, elapsed time.Duration) Result {
	indices := SelectTopK(probs, TopK)
	scores := make([]float32, 0, len(indices))
	for _, idx := range indices {
		scores = append(scores, probs[idx])
	}
	return Result{
		DetectedIndices: indices,
		DetectedScore:   scores,
		ProcessTimeMs:   max(elapsed.Milliseconds(), 0),
	}
}

// Close closes the session. Only the first call reaches the session.
func (a *Analyzer) Close() error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.closed = true
		a.closeErr = a.session.Close()
	})
	return a.closeErr
}
