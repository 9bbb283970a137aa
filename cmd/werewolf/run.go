package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vntrieu/werewolf/internal/games"
	"github.com/vntrieu/werewolf/internal/oracle"
	"github.com/vntrieu/werewolf/internal/runner"
)

type runOptions struct {
	players   []string
	count     int
	roles     string
	seed      int64
	maxRounds int
	noSheriff bool
	offline   bool
	asJSON    bool
}

// runOutput is the --json form of a finished run.
type runOutput struct {
	games.Summary
	Seed int64 `json:"seed"`
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play one game to the end and print its summary",
		Long: `Play one game on this terminal. Roles are dealt at random (reproducibly with --seed)
and every seat asks the configured oracle for its decisions; without WEREWOLF_ORACLE_API_KEY,
or with --offline, each seat plays its fallback policy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGame(cmd, global, opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.players, "players", nil, "Player names in seat order (comma separated)")
	cmd.Flags().IntVar(&opts.count, "count", 8, "Number of players when --players is not given")
	cmd.Flags().StringVar(&opts.roles, "roles", "", `Role distribution, e.g. "werewolf=2,villager=3,seer=1" (default: built-in for the player count)`)
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Random seed (default: drawn at random)")
	cmd.Flags().IntVar(&opts.maxRounds, "max-rounds", 0, "Round cap (default WEREWOLF_MAX_ROUNDS)")
	cmd.Flags().BoolVar(&opts.noSheriff, "no-sheriff", false, "Play without the sheriff election")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Do not call the oracle; every seat plays its fallback policy")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

func (o *runOptions) request(cmd *cobra.Command) (runner.StartRequest, error) {
	req := runner.StartRequest{Players: o.players, MaxRounds: o.maxRounds}
	if len(req.Players) == 0 {
		if o.count <= 0 {
			return req, fmt.Errorf("--count must be positive")
		}
		for i := 1; i <= o.count; i++ {
			req.Players = append(req.Players, fmt.Sprintf("Player%d", i))
		}
	}
	if o.roles != "" {
		counts, err := games.ParseRoleCounts(o.roles)
		if err != nil {
			return req, err
		}
		req.RoleCounts = counts
	}
	if cmd.Flags().Changed("seed") {
		seed := o.seed
		req.Seed = &seed
	}
	if o.noSheriff {
		off := false
		req.SheriffEnabled = &off
	}
	return req, nil
}

func runGame(cmd *cobra.Command, global *globalOptions, opts *runOptions) error {
	req, err := opts.request(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	cfg, logger, st, err := global.setup(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	runnerOpts := []runner.Option{runner.WithRules(cfg.Rules()), runner.WithLogger(logger)}
	if cfg.OracleConfigured() && !opts.offline {
		runnerOpts = append(runnerOpts, runner.WithOracle(oracle.NewClient(cfg.Oracle())), runner.WithAgentTimeout(cfg.OracleTimeout))
	}
	m := runner.NewManager(st, runnerOpts...)

	run, playErr := m.Play(ctx, req)
	if run == nil {
		return playErr
	}
	final, _ := run.Result()
	if final == nil {
		return playErr
	}
	if err := printSummary(cmd.OutOrStdout(), games.Summarize(final, run.Diagnostics, true, true), run.Seed, opts.asJSON); err != nil {
		return err
	}
	if errors.Is(playErr, context.Canceled) {
		return fmt.Errorf("game %s interrupted", run.GameID)
	}
	return playErr
}

func printSummary(w io.Writer, sum games.Summary, seed int64, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runOutput{Summary: sum, Seed: seed})
	}
	fmt.Fprintf(w, "seed %d\n", seed)
	_, err := io.WriteString(w, sum.Text())
	return err
}
