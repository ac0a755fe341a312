package onnx

import (
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/krau/konaframe/config"
	ort "github.com/yalue/onnxruntime_go"
)

var pathOnce sync.Once
var libPath string

var systemLibs = map[string][]string{
	"linux": {
		"onnxlibs/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/libonnxruntime.so",
		"/opt/onnxruntime/lib/libonnxruntime.so",
	},
	"darwin": {
		"/usr/local/lib/libonnxruntime.dylib",
		"/opt/homebrew/lib/libonnxruntime.dylib",
	},
	"windows": {
		"onnxruntime.dll",
	},
}

func LibPath() string {
	pathOnce.Do(func() {
		libPath = resolveLibPath(config.C().Libonnx, runtime.GOOS)
		if libPath == "" {
			slog.Error("ONNX Runtime library path could not be determined for this OS")
		} else {
			slog.Info("Using ONNX Runtime library", slog.String("path", libPath))
		}
	})
	return libPath
}

func resolveLibPath(configured, goos string) string {
	if configured != "" {
		return configured
	}
	for _, p := range systemLibs[goos] {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Init loads the shared library and creates the process-wide environment.
func Init() error {
	if ort.IsInitialized() {
		return nil
	}
	path := LibPath()
	if path == "" {
		return errors.New("onnxruntime shared library not found, set libonnx in config.toml")
	}
	ort.SetSharedLibraryPath(path)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "initialize onnxruntime environment")
	}
	return nil
}

func Destroy() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}
