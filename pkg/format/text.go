package format

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andoni-guzman/cdapio/pkg/errors"
	"github.com/andoni-guzman/cdapio/pkg/lock"
	"github.com/andoni-guzman/cdapio/pkg/logger"
	"github.com/andoni-guzman/cdapio/pkg/record"
)

// Configuration keys specific to the text engine.
const (
	// TextPathKey names the input file for the read path.
	TextPathKey = "text.path"

	// TextFormatName identifies the text format in format.class entries.
	TextFormatName = "text"
)

// Text element types: key is the byte offset of the line, value is the line.
var (
	TextKeyType   = reflect.TypeOf(int64(0))
	TextValueType = reflect.TypeOf("")
)

// TextEngine is a reference Engine over line-oriented text files. Reads
// produce (byte offset, line) records; writes commit one part file per task
// under the synchronization gate.
type TextEngine struct {
	logger *zap.Logger
}

// NewTextEngine creates a text engine.
func NewTextEngine() *TextEngine {
	return &TextEngine{
		logger: logger.Get().With(zap.String("component", "text_engine")),
	}
}

// Read validates the configuration and constructs a bounded read stage. The
// input file is not touched until the stage is opened.
func (e *TextEngine) Read(conf *Configuration) (Source, error) {
	if err := checkTextClasses(conf); err != nil {
		return nil, err
	}
	path := conf.Get(TextPathKey)
	if path == "" {
		return nil, errors.Newf(errors.ErrorTypeConfig, "configuration entry %s is required", TextPathKey)
	}
	return &textSource{path: path, logger: e.logger}, nil
}

// Write validates the configuration and constructs a bounded write stage
// bound to the given gate.
func (e *TextEngine) Write(conf *Configuration, gate lock.Gate) (Sink, error) {
	if err := checkTextClasses(conf); err != nil {
		return nil, err
	}
	dir := conf.Get(OutputDirKey)
	if dir == "" {
		return nil, errors.Newf(errors.ErrorTypeConfig, "configuration entry %s is required", OutputDirKey)
	}
	if gate == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "write stage requires a synchronization gate")
	}
	return &textSink{
		dir:         dir,
		gate:        gate,
		partitioned: conf.Get(PartitioningKey) == "true",
		logger:      e.logger,
	}, nil
}

func checkTextClasses(conf *Configuration) error {
	if got := conf.Get(FormatClassKey); got != TextFormatName {
		return errors.Newf(errors.ErrorTypeConfig, "text engine cannot serve format %q", got)
	}
	if got := conf.Get(KeyClassKey); got != TypeName(TextKeyType) {
		return errors.NewConfigurationMismatch("key", got, TypeName(TextKeyType))
	}
	if got := conf.Get(ValueClassKey); got != TypeName(TextValueType) {
		return errors.NewConfigurationMismatch("value", got, TypeName(TextValueType))
	}
	return nil
}

type textSource struct {
	path   string
	logger *zap.Logger
}

func (s *textSource) Open(ctx context.Context) (*record.Stream, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "opening input file")
	}

	out := make(chan record.KV, 64)
	errs := make(chan error, 1)

	go func() {
		defer f.Close()
		defer close(out)
		defer close(errs)

		scanner := bufio.NewScanner(f)
		var offset int64
		for scanner.Scan() {
			line := scanner.Text()
			select {
			case out <- record.KV{Key: offset, Value: line}:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
			offset += int64(len(line)) + 1
		}
		if err := scanner.Err(); err != nil {
			errs <- errors.Wrap(err, errors.ErrorTypeIO, "reading input file")
		}
	}()

	s.logger.Debug("text source opened", zap.String("path", s.path))
	return &record.Stream{Records: out, Errors: errs}, nil
}

type textSink struct {
	dir         string
	gate        lock.Gate
	partitioned bool
	logger      *zap.Logger
}

// Write drains the stream into a temporary part file and commits it into the
// output directory while holding the gate. The gate is released
// unconditionally, success or failure.
func (s *textSink) Write(ctx context.Context, in *record.Stream) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "creating output directory")
	}

	taskID := uuid.NewString()
	tmpPath := filepath.Join(s.dir, fmt.Sprintf(".tmp-%s", taskID))
	f, err := os.Create(tmpPath)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "creating part file")
	}

	w := bufio.NewWriter(f)
	var count int64
	for kv := range in.Records {
		line, ok := kv.Value.(string)
		if !ok {
			_ = f.Close()
			_ = os.Remove(tmpPath)
			return errors.Newf(errors.ErrorTypeValidation, "text sink requires string values, got %T", kv.Value)
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			_ = f.Close()
			_ = os.Remove(tmpPath)
			return errors.Wrap(err, errors.ErrorTypeIO, "writing part file")
		}
		count++
	}
	if err, ok := <-in.Errors; ok && err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, errors.ErrorTypeIO, "flushing part file")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, errors.ErrorTypeIO, "closing part file")
	}

	// Commit under the gate so concurrent tasks never race on the output
	// directory metadata.
	release, err := s.gate.Acquire(ctx)
	if err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	defer release()

	final := filepath.Join(s.dir, fmt.Sprintf("part-%s.txt", taskID))
	if err := os.Rename(tmpPath, final); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, errors.ErrorTypeIO, "committing part file")
	}

	s.logger.Debug("text sink committed part",
		zap.String("path", final), zap.Int64("records", count))
	return nil
}
