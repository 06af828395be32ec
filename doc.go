// Package cdapio adapts connector plugins written for a plugin-hosted
// data-integration platform into pipeline read and write stages.
//
// A plugin is classified as bounded or unbounded when its descriptor is
// constructed, and the classification routes execution: bounded plugins run
// through a format-based backend driven by a derived key/value
// configuration, unbounded plugins run through a receiver-based backend that
// pushes values with extracted offsets. Callers describe what to run; the
// adapter decides how.
//
// # Quick Start
//
// Read from the bundled text plugin and write back through it:
//
//	import (
//	    "context"
//	    "github.com/andoni-guzman/cdapio/pkg/cdap"
//	    "github.com/andoni-guzman/cdapio/pkg/plugin"
//	    "github.com/andoni-guzman/cdapio/pkg/plugins/textio"
//	)
//
//	p, _ := plugin.ByName("textio")
//	read, _ := cdap.NewRead().
//	    WithPlugin(p).
//	    WithPluginConfig(&textio.Config{Path: "input.txt"}).
//	    WithKeyType(cdap.TypeOf[int64]()).
//	    WithValueType(cdap.TypeOf[string]()).
//	    Build()
//
//	q, _ := plugin.ByName("textio")
//	write, _ := cdap.NewWrite().
//	    WithPlugin(q).
//	    WithPluginConfig(&textio.Config{OutputDir: "out"}).
//	    WithKeyType(cdap.TypeOf[int64]()).
//	    WithValueType(cdap.TypeOf[string]()).
//	    WithSyncDir("locks").
//	    Build()
//
//	stream, _ := read.Open(context.Background())
//	_ = write.Write(context.Background(), stream)
//
// # Key Packages
//
//	pkg/cdap       - Read and Write stage builders and dispatch
//	pkg/plugin     - Plugin descriptors, classification and registry
//	pkg/format     - Bounded backend: format engines and derived configuration
//	pkg/streaming  - Unbounded backend: receivers, offsets and emit
//	pkg/config     - Schema-driven parameter resolution into typed configs
//	pkg/lock       - Directory-scoped synchronization gates for writers
//	pkg/coder      - Value coder registry for unbounded reads
//	pkg/errors     - Structured error handling
//	pkg/logger     - Structured logging
//	pkg/metrics    - Metrics collection
//
// Streaming writes are not supported; building a write stage for an
// unbounded plugin fails with an unsupported-operation error.
package cdapio
