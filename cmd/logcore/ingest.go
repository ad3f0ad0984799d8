package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"logcore/internal/config"
	configfile "logcore/internal/config/file"
	configmem "logcore/internal/config/memory"
	"logcore/internal/home"
	"logcore/internal/message"
	"logcore/internal/source"
	"logcore/internal/sysmetrics"
	"logcore/internal/tspattern"
)

func newIngestCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run the configured source adapters and assemble logical messages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			homeFlag, _ := cmd.Flags().GetString("home")
			configFlag, _ := cmd.Flags().GetString("config")
			statsInterval, _ := cmd.Flags().GetDuration("stats-interval")
			rateLimit, _ := cmd.Flags().GetFloat64("rate-limit")

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return runIngest(ctx, logger, ingestOptions{
				homeFlag:      homeFlag,
				configPath:    configFlag,
				statsInterval: statsInterval,
				rateLimit:     rateLimit,
			})
		},
	}

	cmd.Flags().Duration("stats-interval", 30*time.Second, "how often to log ingest stats")
	cmd.Flags().Float64("rate-limit", 0, "max records/sec per source (0 = unlimited)")

	return cmd
}

type ingestOptions struct {
	homeFlag      string
	configPath    string
	statsInterval time.Duration
	rateLimit     float64
}

func runIngest(ctx context.Context, logger *slog.Logger, opts ingestOptions) error {
	hd, err := resolveHome(opts.homeFlag)
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	if err := hd.EnsureExists(); err != nil {
		return err
	}

	cfgStore := openConfigStore(opts.configPath)
	cfg, err := cfgStore.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg == nil || len(cfg.Sources) == 0 {
		return fmt.Errorf("no sources configured; pass --config pointing at a JSON file with at least one source")
	}

	registry := registryFromHint(cfg.PatternOrder)
	factories := buildFactories(hd)

	var ingested atomic.Int64

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create stats scheduler: %w", err)
	}
	if _, err := sched.NewJob(
		gocron.DurationJob(opts.statsInterval),
		gocron.NewTask(func() {
			logger.Info("ingest stats",
				"messages", ingested.Load(),
				"cpu_percent", sysmetrics.CPUPercent(),
				"memory_inuse_bytes", sysmetrics.MemoryInuse())
		}),
	); err != nil {
		return fmt.Errorf("schedule stats job: %w", err)
	}
	sched.Start()
	defer func() { _ = sched.Shutdown() }()

	g, gctx := errgroup.WithContext(ctx)

	for _, sc := range cfg.Sources {
		factory, ok := factories[sc.Type]
		if !ok {
			return fmt.Errorf("source %q: unknown type %q", sc.ID, sc.Type)
		}

		id, err := sourceUUID(sc.ID)
		if err != nil {
			return fmt.Errorf("source %q: %w", sc.ID, err)
		}

		adapterLogger := logger.With("source", sc.ID, "type", sc.Type)
		adapter, err := factory(id, sc.Params, adapterLogger)
		if err != nil {
			return fmt.Errorf("build source %q: %w", sc.ID, err)
		}

		records := make(chan source.RawRecord, 256)

		g.Go(func() error {
			if err := adapter.Run(gctx, records); err != nil {
				return fmt.Errorf("source %q: %w", sc.ID, err)
			}
			close(records)
			return nil
		})

		var limiter *rate.Limiter
		if opts.rateLimit > 0 {
			limiter = rate.NewLimiter(rate.Limit(opts.rateLimit), int(opts.rateLimit)+1)
		}

		g.Go(func() error {
			return assembleShard(gctx, registry, records, limiter, &ingested, adapterLogger)
		})
	}

	return g.Wait()
}

// assembleShard drains one source's records through its own MessageAssembler
// (spec.md §5: "callers needing parallelism shard inputs and instantiate one
// assembler per shard") and logs each assembled message at debug level.
func assembleShard(ctx context.Context, registry *tspattern.Registry, records <-chan source.RawRecord, limiter *rate.Limiter, counter *atomic.Int64, logger *slog.Logger) error {
	assembler := message.NewMessageAssembler(registry)
	lineSrc := source.NewChanLineSource(ctx, records)

	for {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}

		var msg message.ParsedMessage
		ok, err := assembler.ParseNextFromReader(lineSrc, true, &msg)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("assemble message: %w", err)
		}
		if !ok {
			return nil
		}

		counter.Add(1)
		logger.Debug("assembled message", "bytes", len(msg.Content), "epoch", msg.Epoch, "source", lineSrc.Last().SourceID)
	}
}

func resolveHome(flagValue string) (home.Dir, error) {
	if flagValue != "" {
		return home.New(flagValue), nil
	}
	return home.Default()
}

func openConfigStore(path string) config.Store {
	if path == "" {
		return configmem.NewStore()
	}
	return configfile.NewStore(path)
}

func sourceUUID(id string) (uuid.UUID, error) {
	if id == "" {
		return uuid.NewV7()
	}
	parsed, err := uuid.Parse(id)
	if err == nil {
		return parsed, nil
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)), nil
}

func registryFromHint(names []string) *tspattern.Registry {
	if len(names) == 0 {
		return tspattern.DefaultRegistry()
	}

	def := tspattern.DefaultRegistry()
	byName := make(map[string]*tspattern.Pattern, len(def.Patterns()))
	for _, p := range def.Patterns() {
		byName[p.Name] = p
	}

	ordered := make([]*tspattern.Pattern, 0, len(def.Patterns()))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if p, ok := byName[name]; ok && !seen[name] {
			ordered = append(ordered, p)
			seen[name] = true
		}
	}
	for _, p := range def.Patterns() {
		if !seen[p.Name] {
			ordered = append(ordered, p)
		}
	}

	return tspattern.NewRegistry(ordered)
}
