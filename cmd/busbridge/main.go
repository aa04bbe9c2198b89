// Command busbridge runs a standalone relay with a pass-through engine. It is
// mainly a smoke-test harness for transports: every payload arriving on a
// source topic is echoed onto a destination topic on the next cycle.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/drblury/busbridge"
	_ "github.com/drblury/busbridge/transport/transports"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type runOptions struct {
	configPath  string
	transport   string
	natsURL     string
	intervalMS  int
	watchConfig bool
	statusEvery time.Duration
	routes      []string
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "busbridge",
		Short: "Bidirectional relay between a pub/sub bus and a computation engine",
	}
	cmd.AddCommand(newRunCommand())
	return cmd
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the relay loop with a pass-through engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelay(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to a JSON config file")
	cmd.Flags().StringVar(&opts.transport, "transport", "", "bus transport (channel|nats), overrides the config file")
	cmd.Flags().StringVar(&opts.natsURL, "nats-url", "", "NATS server URL, overrides the config file")
	cmd.Flags().IntVar(&opts.intervalMS, "interval-ms", 0, "relay cycle interval in milliseconds, overrides the config file")
	cmd.Flags().BoolVar(&opts.watchConfig, "watch", false, "reload the config file when it changes")
	cmd.Flags().DurationVar(&opts.statusEvery, "status-every", 0, "print a status snapshot at this interval (0 disables)")
	cmd.Flags().StringSliceVar(&opts.routes, "route", []string{"relay_in=relay_out:16"},
		"pass-through route as src=dst:size, repeatable")

	return cmd
}

func runRelay(parent context.Context, opts *runOptions) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := busbridge.NewSlogServiceLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	conf, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger.Info("starting relay", busbridge.LogFields{"config": conf.String()})

	bus, err := busbridge.OpenBus(ctx, conf, logger)
	if err != nil {
		return fmt.Errorf("open bus: %w", err)
	}
	defer bus.Close()

	factory, err := passThroughFactory(opts.routes)
	if err != nil {
		return err
	}

	deps := busbridge.DriverDependencies{Metrics: busbridge.NewMetrics(nil)}
	if opts.watchConfig && opts.configPath != "" {
		watcher, err := busbridge.NewConfigWatcher(opts.configPath, func(fresh *busbridge.Config) error {
			logger.Info("configuration reloaded", busbridge.LogFields{"config": fresh.String()})
			return nil
		}, logger)
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		defer watcher.Close()
		deps.Params = watcher
	}

	driver, err := busbridge.NewDriver(conf, logger, bus, factory, deps)
	if err != nil {
		return err
	}

	if opts.statusEvery > 0 {
		go printStatus(ctx, driver, opts.statusEvery)
	}

	if err := driver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func loadConfig(opts *runOptions) (*busbridge.Config, error) {
	conf := &busbridge.Config{}
	if opts.configPath != "" {
		loaded, err := busbridge.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		conf = loaded
	}
	if opts.transport != "" {
		conf.PubSubSystem = opts.transport
	}
	if opts.natsURL != "" {
		conf.NATSURL = opts.natsURL
	}
	if opts.intervalMS > 0 {
		conf.CycleIntervalMS = opts.intervalMS
	}
	if err := busbridge.ValidateConfig(conf); err != nil {
		return nil, err
	}
	return conf, nil
}

type route struct {
	src busbridge.Topic
	dst busbridge.Topic
}

// parseRoute parses "src=dst:size" into a topic pair sharing one size.
func parseRoute(s string) (route, error) {
	lhs, rhs, ok := strings.Cut(s, "=")
	if !ok {
		return route{}, fmt.Errorf("route %q: expected src=dst:size", s)
	}
	dst, sizeStr, ok := strings.Cut(rhs, ":")
	if !ok {
		return route{}, fmt.Errorf("route %q: expected src=dst:size", s)
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size <= 0 {
		return route{}, fmt.Errorf("route %q: invalid size %q", s, sizeStr)
	}
	return route{
		src: busbridge.NewTopic(strings.TrimSpace(lhs), size),
		dst: busbridge.NewTopic(strings.TrimSpace(dst), size),
	}, nil
}

// passThroughFactory builds an engine echoing every fresh source payload to
// its destination topic.
func passThroughFactory(specs []string) (busbridge.EngineFactory, error) {
	routes := make([]route, 0, len(specs))
	for _, s := range specs {
		r, err := parseRoute(s)
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}

	return func() (busbridge.Engine, error) {
		eng := busbridge.NewProtocolEngine(func(ctx *busbridge.StepContext, _ int64) {
			for _, r := range routes {
				payload, fresh, code := ctx.Input(r.src)
				if code.IsError() || !fresh {
					continue
				}
				ctx.SetOutput(r.dst, payload)
			}
		})
		for _, r := range routes {
			eng.SubscribeTo(r.src)
			eng.AdvertiseOn(r.dst)
		}
		return eng, nil
	}, nil
}

func printStatus(ctx context.Context, driver *busbridge.Driver, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if out, err := busbridge.MarshalIndent(driver.Status(), "", "  "); err == nil {
				fmt.Println(string(out))
			}
		}
	}
}
