package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/okian/osker/internal/domain/model"
	"github.com/okian/osker/internal/domain/types"
)

const (
	defaultServer  = "http://localhost:9080"
	defaultTimeout = 30 * time.Second
	defaultTop     = 20
)

type options struct {
	server  string
	timeout time.Duration
	json    bool
}

func (o *options) client() *Client { return NewClient(o.server, o.timeout) }

// NewRootCommand builds the osker command tree. extra commands, such as
// serve, are added alongside the built-in ones.
func NewRootCommand(extra ...*cobra.Command) *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "osker",
		Short:         "TETR.IO league playstyle metrics",
		Long:          "Compute derived playstyle metrics locally or query a running osker service.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&o.server, "server", defaultServer, "base URL of a running osker service")
	root.PersistentFlags().DurationVar(&o.timeout, "timeout", defaultTimeout, "HTTP request timeout")
	root.PersistentFlags().BoolVar(&o.json, "json", false, "print raw JSON instead of tables")

	root.AddCommand(
		calcCmd(o),
		playerCmd(o),
		averagesCmd(o),
		topCmd(o),
		refreshCmd(o),
		verifyCmd(o),
	)
	root.AddCommand(extra...)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func calcCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "calc APM PPS VS",
		Short: "Compute every metric for a stat-only record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			vals := make([]float64, len(args))
			for i, a := range args {
				v, err := strconv.ParseFloat(a, 64)
				if err != nil {
					return fmt.Errorf("%w: %q is not a number", ErrArgs, a)
				}
				vals[i] = v
			}
			if vals[0] < 0 || vals[1] <= 0 || vals[2] < 0 {
				return fmt.Errorf("%w: need APM >= 0, PPS > 0, VS >= 0", ErrArgs)
			}
			view := types.NewPlayerView(model.FromStats(vals[0], vals[1], vals[2]))
			if o.json {
				return printJSON(cmd.OutOrStdout(), view)
			}
			return PrintPlayer(cmd.OutOrStdout(), view)
		},
	}
}

func playerCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "player NAME",
		Short: "Show a player, or a $avg<RANK> average, from the service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := o.client().Player(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if o.json {
				return printJSON(cmd.OutOrStdout(), view)
			}
			return PrintPlayer(cmd.OutOrStdout(), view)
		},
	}
}

func averagesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "averages",
		Short: "List the rank averages of the current snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			avgs, err := o.client().Averages(cmd.Context())
			if err != nil {
				return err
			}
			if o.json {
				return printJSON(cmd.OutOrStdout(), avgs)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "generation %d  |  dominant rank %s\n", avgs.Generation, avgs.Dominant)
			return PrintAverages(cmd.OutOrStdout(), avgs.Averages)
		},
	}
}

func topCmd(o *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the TR leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			board, err := o.client().Leaderboard(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if o.json {
				return printJSON(cmd.OutOrStdout(), board)
			}
			return PrintLeaderboard(cmd.OutOrStdout(), board.Entries)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", defaultTop, "number of players")
	return cmd
}

func refreshCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Ask the service to collect and publish a new snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := o.client().Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if o.json {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "generation %d: %d players, %d averages, dominant rank %s\n",
				res.Generation, res.Players, res.Averages, res.Dominant)
			return nil
		},
	}
}

func verifyCmd(o *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check leaderboard order and recompute served metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, err := Verify(cmd.Context(), o.client(), limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if o.json {
				if err := printJSON(w, rep); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(w, "generation %d: checked %d players\n", rep.Generation, rep.Checked)
				for _, e := range rep.OrderErrors {
					fmt.Fprintf(w, "order: %s\n", e)
				}
				for _, m := range rep.Mismatches {
					fmt.Fprintf(w, "#%d %s:\n%s\n", m.Position, m.Name, m.Diff)
				}
			}
			if !rep.OK() {
				return fmt.Errorf("%w: %d order errors, %d metric mismatches", ErrVerify, len(rep.OrderErrors), len(rep.Mismatches))
			}
			if !o.json {
				fmt.Fprintln(w, "ok")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "number of leaderboard rows to check")
	return cmd
}
