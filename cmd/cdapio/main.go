package main

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/andoni-guzman/cdapio/internal/pipeline"
	"github.com/andoni-guzman/cdapio/pkg/cdap"
	"github.com/andoni-guzman/cdapio/pkg/config"
	"github.com/andoni-guzman/cdapio/pkg/logger"
	"github.com/andoni-guzman/cdapio/pkg/plugin"

	// Import all available plugins to register them
	_ "github.com/andoni-guzman/cdapio/pkg/plugins/sequence"

	"github.com/andoni-guzman/cdapio/pkg/plugins/textio"
)

var version = "0.1.0"

// pipelineSpec is the shape of the pipeline file consumed by the run
// command.
type pipelineSpec struct {
	Source struct {
		Plugin string            `mapstructure:"plugin"`
		Params map[string]string `mapstructure:"params"`
	} `mapstructure:"source"`
	Sink struct {
		Plugin   string            `mapstructure:"plugin"`
		Params   map[string]string `mapstructure:"params"`
		LocksDir string            `mapstructure:"locks_dir"`
	} `mapstructure:"sink"`
	KeyClass   string        `mapstructure:"key_class"`
	ValueClass string        `mapstructure:"value_class"`
	Timeout    time.Duration `mapstructure:"timeout"`
	LogLevel   string        `mapstructure:"log_level"`
}

// classTypes maps the class names accepted in pipeline files to their type
// witnesses.
var classTypes = map[string]reflect.Type{
	"string":  cdap.TypeOf[string](),
	"int64":   cdap.TypeOf[int64](),
	"float64": cdap.TypeOf[float64](),
	"bytes":   cdap.TypeOf[[]byte](),
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "cdapio",
		Short: "cdapio - run CDAP-style plugins as pipeline stages",
		Long: `cdapio adapts connector plugins written for a plugin-hosted data-integration
platform into pipeline stages: bounded plugins run through the format engine,
unbounded plugins through the receiver engine.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cdapio v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered plugins",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Registered plugins:")
			for _, name := range plugin.List() {
				fmt.Printf("  - %s\n", name)
			}
		},
	})

	var pipelineFile string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a pipeline from a pipeline file",
		Long: `Run a pipeline described by a YAML pipeline file.

Example:
  cdapio run --pipeline pipeline.yaml

Pipeline file:
  source:
    plugin: textio
    params:
      path: input.txt
  sink:
    plugin: textio
    params:
      outputDir: out
    locks_dir: locks
  key_class: int64
  value_class: string`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(pipelineFile)
		},
	}
	runCmd.Flags().StringVarP(&pipelineFile, "pipeline", "p", "", "Path to pipeline YAML file (required)")
	_ = runCmd.MarkFlagRequired("pipeline")
	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runPipeline(path string) error {
	spec, err := loadPipelineSpec(path)
	if err != nil {
		return err
	}

	logLevel := spec.LogLevel
	if logLevel == "" {
		logLevel = "info"
	}
	if err := logger.Init(logger.Config{Level: logLevel, Encoding: "json"}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	keyType, ok := classTypes[spec.KeyClass]
	if !ok {
		return fmt.Errorf("unknown key class %q", spec.KeyClass)
	}
	valueType, ok := classTypes[spec.ValueClass]
	if !ok {
		return fmt.Errorf("unknown value class %q", spec.ValueClass)
	}

	srcPlugin, srcCfg, err := resolvePlugin(spec.Source.Plugin, spec.Source.Params)
	if err != nil {
		return err
	}
	readStage, err := cdap.NewRead().
		WithPlugin(srcPlugin).
		WithPluginConfig(srcCfg).
		WithKeyType(keyType).
		WithValueType(valueType).
		Build()
	if err != nil {
		return err
	}

	sinkPlugin, sinkCfg, err := resolvePlugin(spec.Sink.Plugin, spec.Sink.Params)
	if err != nil {
		return err
	}
	writeStage, err := cdap.NewWrite().
		WithPlugin(sinkPlugin).
		WithPluginConfig(sinkCfg).
		WithKeyType(keyType).
		WithValueType(valueType).
		WithSyncDir(spec.Sink.LocksDir).
		Build()
	if err != nil {
		return err
	}

	ctx := context.Background()
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	runner := pipeline.NewRunner(spec.Source.Plugin)
	stats, err := runner.Run(ctx, readStage, writeStage)
	if err != nil {
		return err
	}

	logger.Info("pipeline complete",
		zap.String("run_id", stats.RunID),
		zap.Int64("records", stats.Records),
		zap.Duration("duration", stats.Duration))
	return nil
}

func loadPipelineSpec(path string) (*pipelineSpec, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading pipeline file %s: %w", path, err)
	}

	var spec pipelineSpec
	if err := v.Unmarshal(&spec); err != nil {
		return nil, fmt.Errorf("parsing pipeline file %s: %w", path, err)
	}
	return &spec, nil
}

// resolvePlugin builds a descriptor and its typed configuration from a
// plugin name and raw parameters.
func resolvePlugin(name string, params map[string]string) (*plugin.Plugin, plugin.Config, error) {
	p, err := plugin.ByName(name)
	if err != nil {
		return nil, nil, err
	}

	schema, err := schemaFor(name)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := configFor(name, schema, params)
	if err != nil {
		return nil, nil, err
	}
	return p, cfg, nil
}

func schemaFor(name string) (config.Schema, error) {
	switch name {
	case textio.Name:
		return textio.Schema, nil
	default:
		return config.Schema{}, fmt.Errorf("no configuration schema for plugin %q", name)
	}
}

func configFor(name string, schema config.Schema, params map[string]string) (plugin.Config, error) {
	switch name {
	case textio.Name:
		return config.Resolve[textio.Config](schema, params)
	default:
		return nil, fmt.Errorf("no configuration schema for plugin %q", name)
	}
}
