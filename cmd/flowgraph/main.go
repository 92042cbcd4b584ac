package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flowgraph-io/flowgraph/internal/callflow"
	"github.com/flowgraph-io/flowgraph/internal/config"
	"github.com/flowgraph-io/flowgraph/internal/discover"
	"github.com/flowgraph-io/flowgraph/internal/service"
	"github.com/flowgraph-io/flowgraph/internal/store"
	"github.com/flowgraph-io/flowgraph/internal/watcher"
)

var version = "dev"

var (
	flagRoot    string
	flagVerbose bool
)

func main() {
	root := &cobra.Command{
		Use:     "flowgraph",
		Short:   "Call-flow and instance-graph extraction for source trees",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if flagVerbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().StringVar(&flagRoot, "root", ".", "project root")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	root.AddCommand(callsCmd(), instancesCmd(), watchCmd(), scanCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func callsCmd() *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "calls <file> <function>",
		Short: "Extract the call graph rooted at a function",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(flagRoot)
			if depth <= 0 {
				depth = cfg.EffectiveMaxDepth()
			}
			e, err := callflow.New(flagRoot, depth)
			if err != nil {
				return err
			}
			defer e.Close()

			graph, err := e.Extract(args[0], args[1])
			if err != nil {
				return err
			}
			if graph == nil {
				return fmt.Errorf("no graph: %s not found in %s", args[1], args[0])
			}
			return printJSON(callflow.ToReactFlow(graph))
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 0, "max call depth (default from config)")
	return cmd
}

func instancesCmd() *cobra.Command {
	var function string
	var force bool
	cmd := &cobra.Command{
		Use:   "instances <file>",
		Short: "Extract the composition-root instance graph of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, st, err := openService()
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}
			if err := svc.LoadPersisted(); err != nil {
				slog.Warn("cli.load_persisted", "err", err)
			}

			graph, err := svc.GetGraph(args[0], function, force)
			if err != nil {
				return err
			}
			if graph == nil {
				return fmt.Errorf("no composition root %q in %s", function, args[0])
			}
			if err := svc.SaveAll(); err != nil {
				slog.Warn("cli.save_all", "err", err)
			}
			return printJSON(graph.ToReactFlow())
		},
	}
	cmd.Flags().StringVar(&function, "function", "main", "composition root function")
	cmd.Flags().BoolVar(&force, "force", false, "bypass the graph cache")
	return cmd
}

func scanCmd() *cobra.Command {
	var ignoreFile string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List the analyzable source files under the project root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := discover.Discover(cmd.Context(), flagRoot, &discover.Options{IgnoreFile: ignoreFile})
			if err != nil {
				return err
			}
			return printJSON(files)
		},
	}
	cmd.Flags().StringVar(&ignoreFile, "ignore-file", "", "ignore file (default <root>/.flowgraphignore)")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the project root and keep cached graphs fresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(flagRoot)
			svc, st, err := openService()
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}
			if err := svc.LoadPersisted(); err != nil {
				slog.Warn("cli.load_persisted", "err", err)
			}

			w, err := watcher.New(flagRoot, cfg.EffectiveDebounce(), func(paths []string) {
				result := svc.OnFilesChanged(paths)
				if len(result.Invalidated) > 0 {
					slog.Info("cli.invalidated",
						"graphs", len(result.Invalidated),
						"refreshed", len(result.Refreshed))
				}
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			slog.Info("cli.watching", "root", flagRoot)
			w.Run(ctx)

			return svc.SaveAll()
		},
	}
}

// openService builds the graph service with persistence from config.
func openService() (*service.Service, *store.Store, error) {
	cfg := config.Load(flagRoot)

	var st *store.Store
	var err error
	if cfg.CachePath != "" {
		st, err = store.OpenPath(cfg.CachePath)
	} else {
		abs, absErr := filepath.Abs(flagRoot)
		if absErr != nil {
			return nil, nil, absErr
		}
		st, err = store.Open(filepath.Base(abs))
	}
	if err != nil {
		slog.Warn("cli.store_unavailable", "err", err)
		st = nil
	}

	svc, err := service.New(flagRoot, service.Options{
		Store:        st,
		EagerRefresh: cfg.EagerRefresh,
	})
	if err != nil {
		if st != nil {
			st.Close()
		}
		return nil, nil, err
	}
	return svc, st, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
