package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vntrieu/werewolf/internal/games"
	"github.com/vntrieu/werewolf/internal/memory"
	"github.com/vntrieu/werewolf/internal/store"
)

func newListCmd(global *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded games, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, _, st, err := global.setup(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			list, err := st.ListGames(ctx, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "GAME\tSTATUS\tWINNER\tPLAYERS\tCREATED")
			for _, g := range list {
				winner := g.Winner
				if winner == "" {
					winner = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", g.ID, g.Status, winner, len(g.Players), g.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of games")
	return cmd
}

func newShowCmd(global *globalOptions) *cobra.Command {
	var (
		asJSON     bool
		withEvents bool
	)
	cmd := &cobra.Command{
		Use:   "show GAME_ID",
		Short: "Print the summary of a recorded game",
		Long:  "Print the latest recorded state of a game. Roles, history and the full event log are shown only once the game is over.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, _, st, err := global.setup(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			g, err := st.GetGame(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("game %s not found", args[0])
			}
			if err != nil {
				return err
			}
			snap, err := st.GetLatestSnapshot(ctx, g.ID)
			if err != nil {
				return err
			}
			state, err := games.StateFromMap(snap)
			if err != nil {
				return err
			}
			if state == nil {
				state = games.NewGameState(g.ID, g.Players)
			}
			if g.Status != games.StatusPlaying {
				state.Status, state.Winner = g.Status, g.Winner
			}
			over := state.Status != games.StatusPlaying

			out := cmd.OutOrStdout()
			if err := printSummary(out, games.Summarize(state, nil, over, over), g.Seed, asJSON); err != nil {
				return err
			}
			if !withEvents {
				return nil
			}
			events, err := st.GetGameEvents(ctx, g.ID, 0)
			if err != nil {
				return err
			}
			for _, ev := range events {
				if !over && ev.Entry.Level != memory.LevelPublic {
					continue
				}
				e := ev.Entry
				fmt.Fprintf(out, "%4d day %d %-8s %-7s %s\n", e.Seq, e.Day, e.Phase, e.Level, e.Content)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	cmd.Flags().BoolVar(&withEvents, "events", false, "Also print the event log (public entries only while the game is playing)")
	return cmd
}
