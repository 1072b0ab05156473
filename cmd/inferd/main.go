package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"inferd/internal/backend"
	"inferd/internal/config"
	"inferd/internal/httpapi"
	"inferd/internal/pool"
	"inferd/internal/registry"
	"inferd/internal/resource"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var cfgPath string
	cfg := config.Config{}

	root := &cobra.Command{
		Use:           "inferd",
		Short:         "Local OpenAI-compatible inference daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath != "" {
				fileCfg, err := config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("load config %s: %w", cfgPath, err)
				}
				cfg = mergeConfig(fileCfg, cfg, cmd)
			}
			return runServe(cfg)
		},
	}

	f := serve.Flags()
	f.StringVar(&cfgPath, "config", "", "Config file (.yaml, .json or .toml); flags override it")
	f.StringVar(&cfg.Addr, "addr", envOr("INFERD_ADDR", ":8080"), "HTTP listen address")
	f.StringVar(&cfg.ModelsDir, "models-dir", "", "Directory to scan for *.gguf model files")
	f.StringVar(&cfg.Manifest, "manifest", "", "Model manifest file (models.yaml); overrides --models-dir")
	f.StringVar(&cfg.DefaultModel, "default-model", "", "Model served when a request omits one")
	f.IntVar(&cfg.MaxConcurrent, "max-concurrent", 0, "Concurrent execution ceiling across all models (0=default)")
	f.IntVar(&cfg.MaxLoaded, "max-loaded", 0, "Cached handle ceiling before pressure eviction (0=default)")
	f.Var(durationFlag{&cfg.IdleTimeout}, "idle-timeout", "How long an unused model stays loaded, e.g. 5m")
	f.Var(durationFlag{&cfg.SweepInterval}, "sweep-interval", "Idle sweep cadence, e.g. 60s")
	f.Var(durationFlag{&cfg.AcquireWait}, "acquire-wait", "How long requests queue before 429, e.g. 30s")
	f.StringVar(&cfg.LRUPath, "lru-path", "", "File persisting model usage stats across restarts")
	f.StringVar(&cfg.LogLevel, "log-level", envOr("INFERD_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")
	f.StringSliceVar(&cfg.CORSOrigins, "cors-origin", nil, "Allowed CORS origin (repeatable); none disables CORS")
	f.Float64Var(&cfg.MemoryPressurePct, "memory-pressure-pct", 0, "RAM usage percent that triggers pressure eviction (0=off)")
	f.IntVar(&cfg.LlamaCtx, "llama-ctx", 0, "llama context window in tokens (0=default)")
	f.IntVar(&cfg.LlamaThreads, "llama-threads", 0, "llama CPU threads (0=all)")
	f.IntVar(&cfg.LlamaGPULayers, "llama-gpu-layers", 0, "Layers offloaded to GPU")
	f.BoolVar(&cfg.LlamaMLock, "llama-mlock", false, "Pin model weights in RAM")
	f.BoolVar(&cfg.LlamaMMap, "llama-mmap", true, "Memory-map model weights")

	root.AddCommand(serve)
	return root
}

// mergeConfig lays explicitly set flags over the file config.
func mergeConfig(file, flags config.Config, cmd *cobra.Command) config.Config {
	set := func(name string) bool { return cmd.Flags().Changed(name) }
	out := file
	if set("addr") {
		out.Addr = flags.Addr
	}
	if set("models-dir") {
		out.ModelsDir = flags.ModelsDir
	}
	if set("manifest") {
		out.Manifest = flags.Manifest
	}
	if set("default-model") {
		out.DefaultModel = flags.DefaultModel
	}
	if set("max-concurrent") {
		out.MaxConcurrent = flags.MaxConcurrent
	}
	if set("max-loaded") {
		out.MaxLoaded = flags.MaxLoaded
	}
	if set("idle-timeout") {
		out.IdleTimeout = flags.IdleTimeout
	}
	if set("sweep-interval") {
		out.SweepInterval = flags.SweepInterval
	}
	if set("acquire-wait") {
		out.AcquireWait = flags.AcquireWait
	}
	if set("lru-path") {
		out.LRUPath = flags.LRUPath
	}
	if set("log-level") {
		out.LogLevel = flags.LogLevel
	}
	if set("cors-origin") {
		out.CORSOrigins = flags.CORSOrigins
	}
	if set("memory-pressure-pct") {
		out.MemoryPressurePct = flags.MemoryPressurePct
	}
	if set("llama-ctx") {
		out.LlamaCtx = flags.LlamaCtx
	}
	if set("llama-threads") {
		out.LlamaThreads = flags.LlamaThreads
	}
	if set("llama-gpu-layers") {
		out.LlamaGPULayers = flags.LlamaGPULayers
	}
	if set("llama-mlock") {
		out.LlamaMLock = flags.LlamaMLock
	}
	if set("llama-mmap") {
		out.LlamaMMap = flags.LlamaMMap
	}
	return out
}

func runServe(cfg config.Config) error {
	logger := newLogger(cfg.LogLevel)

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	logger.Info().Int("models", len(reg.List())).Bool("llama_built", backend.LlamaBuilt()).
		Msg("registry loaded")

	mon := resource.NewMonitor(5 * time.Second)
	mon.Start()
	defer mon.Stop()

	var pressure func() bool
	if cfg.MemoryPressurePct > 0 {
		pressure = mon.PressureAbove(cfg.MemoryPressurePct)
	}

	p := pool.New(pool.Config{
		Resolver: reg,
		Backend: backend.NewLlama(backend.Options{
			CtxSize:   cfg.LlamaCtx,
			Threads:   cfg.LlamaThreads,
			GPULayers: cfg.LlamaGPULayers,
			MLock:     cfg.LlamaMLock,
			MMap:      cfg.LlamaMMap,
		}),
		MaxConcurrent: cfg.MaxConcurrent,
		MaxLoaded:     cfg.MaxLoaded,
		IdleTimeout:   cfg.IdleTimeout.Std(),
		SweepInterval: cfg.SweepInterval.Std(),
		AcquireWait:   cfg.AcquireWait.Std(),
		LRUPath:       cfg.LRUPath,
		Publisher:     pool.LogPublisher{Logger: logger},
		Pressure:      pressure,
	})
	p.StartSweeper()
	defer p.Close()

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	httpapi.SetLogger(logger)
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetDefaultModel(cfg.DefaultModel)
	httpapi.SetSystemStatsFunc(mon.Stats)
	if len(cfg.CORSOrigins) > 0 {
		httpapi.SetCORSOptions(true, cfg.CORSOrigins,
			[]string{"GET", "POST", "OPTIONS"},
			[]string{"Accept", "Authorization", "Content-Type"})
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(p),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("inferd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown")
	}
	return nil
}

func loadRegistry(cfg config.Config) (*registry.Registry, error) {
	switch {
	case cfg.Manifest != "":
		return registry.LoadManifest(cfg.Manifest)
	case cfg.ModelsDir != "":
		return registry.LoadDir(cfg.ModelsDir)
	default:
		return nil, fmt.Errorf("either --manifest or --models-dir is required")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// durationFlag adapts config.Duration to pflag.Value.
type durationFlag struct{ d *config.Duration }

func (f durationFlag) String() string {
	if f.d == nil || *f.d == 0 {
		return ""
	}
	return time.Duration(*f.d).String()
}

func (f durationFlag) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*f.d = config.Duration(v)
	return nil
}

func (f durationFlag) Type() string { return "duration" }
