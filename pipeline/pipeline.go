package pipeline

import (
	"context"
	"io"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/krau/konaframe/analyzer"
	"github.com/krau/konaframe/config"
	"github.com/krau/konaframe/labels"
	"github.com/krau/konaframe/onnx"
)

// Source hands out frames one at a time.
type Source interface {
	Next(ctx context.Context) (analyzer.Frame, error)
}

type Stats struct {
	Frames    int
	Delivered int
	Dropped   int
	Failed    int
}

// Pipeline feeds frames from a Source through an Analyzer and logs each result.
type Pipeline struct {
	analyzer    *analyzer.Analyzer
	labels      labels.Table
	stats       Stats
	last        analyzer.Result
	ownsRuntime bool
}

// Init brings up onnxruntime, loads the model and labels from c and builds a pipeline.
func Init(c config.Config) (*Pipeline, error) {
	tags, err := labels.Load(c.LabelsPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read labels")
	}

	if err := onnx.Init(); err != nil {
		return nil, err
	}
	session, err := onnx.OpenSession(c.ModelPath, c.IntraOpThreads)
	if err != nil {
		destroyRuntime()
		return nil, err
	}

	p, err := New(session, tags, c)
	if err != nil {
		if cerr := session.Close(); cerr != nil {
			slog.Error("Failed to close session", slog.String("error", cerr.Error()))
		}
		destroyRuntime()
		return nil, err
	}
	p.ownsRuntime = true
	return p, nil
}

var destroyEnv = onnx.Destroy

func destroyRuntime() {
	if err := destroyEnv(); err != nil {
		slog.Error("Failed to destroy ONNX Runtime environment", slog.String("error", err.Error()))
	}
}

// New wraps an already opened session. The pipeline closes it on Close.
func New(session analyzer.Session, tags labels.Table, c config.Config) (*Pipeline, error) {
	p := &Pipeline{labels: tags}
	a, err := analyzer.New(session, p, analyzer.Options{
		Normalizer: analyzer.MeanStd{Mean: c.Mean, Std: c.Std},
		Logger:     slog.Default(),
	})
	if err != nil {
		return nil, err
	}
	p.analyzer = a
	return p, nil
}

func (p *Pipeline) OnResult(r analyzer.Result) {
	p.stats.Delivered++
	p.last = r
	slog.Info("Classified frame",
		slog.Any("labels", p.labels.Names(r.DetectedIndices)),
		slog.Any("indices", r.DetectedIndices),
		slog.Any("scores", r.DetectedScore),
		slog.Int64("process_time_ms", r.ProcessTimeMs),
	)
}

// Run analyzes frames until the source is exhausted, ctx is done or a frame fails.
func (p *Pipeline) Run(ctx context.Context, src Source) error {
	for {
		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		p.stats.Frames++
		delivered := p.stats.Delivered
		if err := p.analyzer.Analyze(f); err != nil {
			p.stats.Failed++
			slog.Error("Frame failed", slog.Any("frame", f), slog.String("error", err.Error()))
			return errors.Wrapf(err, "frame %d", p.stats.Frames)
		}
		if p.stats.Delivered == delivered {
			p.stats.Dropped++
			slog.Debug("Frame dropped", slog.Any("frame", f))
		}
	}
}

func (p *Pipeline) Stats() Stats { return p.stats }

func (p *Pipeline) Last() analyzer.Result { return p.last }

// Close disposes the analyzer, and the runtime environment when Init created it.
func (p *Pipeline) Close() error {
	err := p.analyzer.Close()
	if p.ownsRuntime {
		destroyRuntime()
		p.ownsRuntime = false
	}
	return err
}
