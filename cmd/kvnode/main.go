// Command kvnode runs one node of the replicated key-value store.
//
// Configuration is read from a YAML cluster file, then the environment
// (NODE_ID, PEERS, DATA_DIR, LISTEN_ADDR, LOG_LEVEL, TRANSPORT), then flags.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dd0wney/cluso-kv/pkg/config"
	"github.com/dd0wney/cluso-kv/pkg/logging"
	"github.com/dd0wney/cluso-kv/pkg/node"
)

type flags struct {
	configPath string
	id         int
	listen     string
	dataDir    string
	logLevel   string
	set        map[string]bool
}

func parseFlags(fs *flag.FlagSet, args []string) (flags, error) {
	var f flags
	fs.StringVar(&f.configPath, "config", "", "Path to the YAML cluster file")
	fs.IntVar(&f.id, "id", 0, "Node ID (overrides file and NODE_ID)")
	fs.StringVar(&f.listen, "listen", "", "HTTP listen address")
	fs.StringVar(&f.dataDir, "data", "", "Data directory for the durable log")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return f, err
	}

	f.set = make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

// loadConfig applies file, environment and flags in that order.
func loadConfig(f flags, lookup func(string) (string, bool)) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(f.configPath); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return cfg, err
	}

	if f.set["id"] {
		cfg.NodeID = f.id
	}
	if f.set["listen"] {
		cfg.ListenAddr = f.listen
	}
	if f.set["data"] {
		cfg.DataDir = f.dataDir
	}
	if f.set["log-level"] {
		cfg.LogLevel = f.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func run(ctx context.Context, args []string) error {
	f, err := parseFlags(flag.NewFlagSet("kvnode", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(f, os.LookupEnv)
	if err != nil {
		return err
	}

	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))
	n, err := node.New(cfg, node.Options{Logger: logger})
	if err != nil {
		return err
	}
	return n.Run(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "kvnode: %v\n", err)
		stop()
		os.Exit(1)
	}
}
