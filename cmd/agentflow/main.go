package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/agentflow/config"
	"github.com/mohammad-safakhou/agentflow/internal/agent"
	"github.com/mohammad-safakhou/agentflow/internal/mcp"
	"github.com/mohammad-safakhou/agentflow/internal/server"
	"github.com/mohammad-safakhou/agentflow/internal/telemetry"
	"github.com/mohammad-safakhou/agentflow/internal/workflow"
)

func main() {
	var cfgPath string
	root := &cobra.Command{Use: "agentflow"}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path")

	var serveAddr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the workflow HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, orch, tele, err := buildOrchestrator(cfgPath)
			if err != nil {
				return err
			}
			defer tele.Shutdown()
			if serveAddr != "" {
				cfg.Server.Address = serveAddr
			}
			return server.New(cfg, orch, tele).Start()
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")

	var requestID string
	run := &cobra.Command{
		Use:   "run \"<request>\"",
		Short: "Execute one workflow and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, orch, tele, err := buildOrchestrator(cfgPath)
			if err != nil {
				return err
			}
			defer tele.Shutdown()

			env := orch.Execute(context.Background(), strings.Join(args, " "), requestID)
			if md := reportMarkdown(env); md != "" {
				fmt.Println(md)
			} else {
				raw, _ := json.MarshalIndent(env, "", "  ")
				fmt.Println(string(raw))
			}
			if !env.OK() {
				return fmt.Errorf("workflow failed: %s", env.Message)
			}
			return nil
		},
	}
	run.Flags().StringVar(&requestID, "request-id", "", "request id (generated if empty)")

	root.AddCommand(serve, run)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildOrchestrator(cfgPath string) (*config.Config, *workflow.Orchestrator, *telemetry.Telemetry, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, nil, nil, err
	}
	tele := telemetry.NewTelemetry(cfg.Telemetry)
	registry, err := mcp.DefaultRegistry(cfg)
	if err != nil {
		tele.Shutdown()
		return nil, nil, nil, err
	}
	adapters := mcp.BuildAdapters(cfg, tele.Logger("ADAPTER"))
	stages := agent.Stages(cfg, registry, adapters, tele)
	orch := workflow.NewOrchestrator(cfg, stages, tele, log.New(log.Writer(), "[ORCH] ", log.LstdFlags))
	return cfg, orch, tele, nil
}

// reportMarkdown digs the rendered report out of a success envelope.
func reportMarkdown(env workflow.Envelope) string {
	if !env.OK() {
		return ""
	}
	results, ok := env.Data["results"].(map[string]any)
	if !ok {
		return ""
	}
	report, ok := results["report"].(map[string]any)
	if !ok {
		return ""
	}
	data, ok := report["data"].(map[string]any)
	if !ok {
		return ""
	}
	md, _ := data["markdown"].(string)
	return md
}
