package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/aretw0/graft"
	"github.com/aretw0/graft/internal/logging"
	httpadapter "github.com/aretw0/graft/pkg/adapters/http"
	"github.com/aretw0/graft/pkg/adapters/memory"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the demo graph over HTTP (runs, SSE step events, metrics)",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		addr, _ := cmd.Flags().GetString("addr")
		scriptPath, _ := cmd.Flags().GetString("script")

		logger := logging.New(logging.ParseLevel(level))

		script := DefaultScript()
		if scriptPath != "" {
			loaded, err := LoadScript(scriptPath)
			if err != nil {
				return err
			}
			script = loaded
		}

		graph, err := NewAgentGraph(NewScriptedModel(script), NewAgentRegistry())
		if err != nil {
			return err
		}

		store := memory.NewStore()
		promReg := prometheus.NewRegistry()

		engine, err := graft.NewEngine(graph,
			graft.WithLogger(logger),
			graft.WithStore(store),
			graft.WithMetrics(promReg),
		)
		if err != nil {
			return err
		}

		handler := httpadapter.NewHandler(engine,
			httpadapter.WithLogger(logger),
			httpadapter.WithStore(store),
			httpadapter.WithMetrics(promReg),
		)

		logger.Info("graft HTTP server listening", "addr", addr)
		if err := http.ListenAndServe(addr, handler); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().String("script", "", "YAML tape of model decisions (default: built-in)")
	rootCmd.AddCommand(serveCmd)
}
