// Package cdap adapts connector plugins written for a plugin-hosted
// data-integration platform into pipeline stages.
//
// A caller builds a plugin descriptor, attaches a resolved configuration and
// key/value type witnesses, and asks the Read or Write builder to
// materialize a stage. The builder classifies the plugin and delegates:
// bounded plugins go through the format-based batch engine, unbounded
// plugins through the receiver-based streaming engine. The adapter only
// constructs stages; it never moves data, and every invalid request fails
// during construction, before the host pipeline engine commits resources.
//
// Reading from a bounded plugin:
//
//	cfg, err := config.Resolve[textio.Config](textio.Schema, params)
//	stage, err := cdap.NewRead().
//		WithPlugin(textio.NewPlugin()).
//		WithPluginConfig(cfg).
//		WithKeyType(cdap.TypeOf[int64]()).
//		WithValueType(cdap.TypeOf[string]()).
//		Build()
//
// Writing requires a synchronization directory, distinct from the data
// output directory, through which concurrent write tasks serialize their
// commits:
//
//	stage, err := cdap.NewWrite().
//		WithPlugin(textio.NewPlugin()).
//		WithPluginConfig(cfg).
//		WithKeyType(cdap.TypeOf[int64]()).
//		WithValueType(cdap.TypeOf[string]()).
//		WithSyncDir("/tmp/locks").
//		Build()
//
// Unbounded plugins are read-only: building a write stage from one fails
// with an unsupported_operation error, permanently.
package cdap

import (
	"context"
	stderrors "errors"
	"reflect"

	"github.com/andoni-guzman/cdapio/pkg/errors"
	"github.com/andoni-guzman/cdapio/pkg/metrics"
	"github.com/andoni-guzman/cdapio/pkg/record"
)

// ReadStage is a constructed read stage, executed by the host pipeline
// engine. Opening the stage performs the actual read.
type ReadStage interface {
	Open(ctx context.Context) (*record.Stream, error)
}

// WriteStage is a constructed write stage consuming key/value records.
type WriteStage interface {
	Write(ctx context.Context, in *record.Stream) error
}

// TypeOf returns the type witness for T, used to declare the key and value
// classes of a stage.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func recordBuildFailure(direction string, err error) {
	label := "unknown"
	var e *errors.Error
	if stderrors.As(err, &e) {
		label = string(e.Type)
	}
	metrics.BuildFailures.WithLabelValues(direction, label).Inc()
}
