package main

import (
	"fmt"

	"github.com/hupe1980/agentlab/config"
	"github.com/spf13/cobra"
)

// flags holds the global command line flags.
type flags struct {
	configPath  string
	provider    string
	model       string
	rounds      int
	maxTeamSize int
	metricsAddr string
	jsonOutput  bool
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "agentlab",
		Short: "Run research questions through teams of LLM agents",
		Long: `agentlab answers research questions with LLM agents that use tools.

A question can be given to a single agent (ask), discussed by a designed
team of specialists in parallel rounds (meet), or split into a plan of
subtasks whose results pass a critic's quality gate (investigate).

Configuration is read from --config, then AGENTLAB_* environment variables,
then flags. The default "scripted" provider works offline.`,
		Version:      version,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&f.provider, "provider", "", "model provider: openai, anthropic or scripted")
	pf.StringVar(&f.model, "model", "", "provider model name")
	pf.IntVar(&f.rounds, "rounds", 0, "discussion rounds of a parallel meeting")
	pf.IntVar(&f.maxTeamSize, "max-team-size", 0, "maximum number of specialists (at least 2)")
	pf.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	pf.BoolVar(&f.jsonOutput, "json", false, "print the result as JSON")

	root.AddCommand(
		newAskCmd(f),
		newMeetCmd(f),
		newInvestigateCmd(f),
		newVersionCmd(),
	)

	return root
}

// load reads the configuration and applies flags the user set explicitly.
func (f *flags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed

	if changed("provider") {
		cfg.Model.Provider = f.provider
	}

	if changed("model") {
		cfg.Model.Name = f.model
	}

	if changed("rounds") {
		cfg.Meeting.Rounds = f.rounds
	}

	if changed("max-team-size") {
		cfg.Meeting.MaxTeamSize = f.maxTeamSize
	}

	if changed("metrics-addr") {
		cfg.Metrics.Addr = f.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the agentlab version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "agentlab %s\n", version)
		},
	}
}
