package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MRamiBalles/DefiCity/server/internal/domain/catalog"
	"github.com/MRamiBalles/DefiCity/server/internal/engine"
	"github.com/MRamiBalles/DefiCity/server/internal/platform/config"
)

// placement is one --place x,y,type request.
type placement struct {
	X, Y   int
	TypeID string
}

func parsePlacement(s string) (placement, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return placement{}, fmt.Errorf("placement %q: want x,y,type", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return placement{}, fmt.Errorf("placement %q: bad x: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return placement{}, fmt.Errorf("placement %q: bad y: %w", s, err)
	}
	return placement{X: x, Y: y, TypeID: strings.TrimSpace(parts[2])}, nil
}

type simulateOptions struct {
	ticks      int
	seed       uint64
	placements []string
	events     bool
}

func simulateCmd(flags *rootFlags) *cobra.Command {
	opts := simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the city headless for a number of ticks and print the ledger",
		Long: "Runs the Simulation Clock and Event Scheduler on a virtual clock, so a run\n" +
			"of thousands of ticks finishes immediately. The same seed gives the same run.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			return runSimulate(cmd.OutOrStdout(), cfg, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.ticks, "ticks", "t", 20, "number of clock firings")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "seed for event selection")
	cmd.Flags().StringArrayVarP(&opts.placements, "place", "p", nil, "building to place before the run, as x,y,type (repeatable)")
	cmd.Flags().BoolVar(&opts.events, "events", true, "let the Event Scheduler fire")
	return cmd
}

func runSimulate(w io.Writer, cfg *config.Config, opts simulateOptions) error {
	cat, err := catalog.LoadOrDefault(cfg.Game.Catalog)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	settings := settingsFrom(cfg)

	now := time.Unix(0, 0).UTC()
	store := engine.NewStore(cat, settings,
		engine.WithClock(func() time.Time { return now }),
		engine.WithSeed(opts.seed),
	)

	for _, raw := range opts.placements {
		p, err := parsePlacement(raw)
		if err != nil {
			return err
		}
		b, err := store.PlaceBuilding(p.X, p.Y, p.TypeID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "placed %-12s at (%d,%d) for %s\n", b.Type.ID, b.X, b.Y, humanize.Comma(int64(b.Cost)))
	}

	fmt.Fprintf(w, "start: %s tokens\n\n", humanize.Comma(int64(store.State().Tokens)))
	fmt.Fprintf(w, "%5s  %8s  %8s  %8s  %10s  %s\n", "TICK", "YIELD", "MAINT", "NET", "TOKENS", "EVENT")

	var sinceEvent time.Duration
	for i := 1; i <= opts.ticks; i++ {
		now = now.Add(settings.TickInterval)

		if opts.events {
			sinceEvent += settings.TickInterval
			if sinceEvent >= settings.EventInterval {
				sinceEvent = 0
				if ev, err := store.GenerateRandomEvent(); err == nil {
					fmt.Fprintf(w, "%5s  %s (%s, %d ticks)\n", "", ev.Title, ev.Kind, ev.Duration)
				} else if !errors.Is(err, engine.ErrEventActive) {
					return err
				}
			}
		}

		report := store.Tick(now)
		label := ""
		if a := store.ActiveEvent(); a != nil {
			label = fmt.Sprintf("%s (%d left)", a.Event.ID, a.Remaining)
		}
		if report.EventEnded != "" {
			label = report.EventEnded + " ended"
		}
		fmt.Fprintf(w, "%5d  %8d  %8d  %+8d  %10s  %s\n",
			i, report.Yield, report.Maintenance, report.Net, humanize.Comma(int64(report.Tokens)), label)
	}

	st := store.State()
	stats := store.Stats()
	fmt.Fprintf(w, "\nend: %s tokens after %d ticks (%s of game time)\n",
		humanize.Comma(int64(st.Tokens)), opts.ticks, time.Duration(opts.ticks)*settings.TickInterval)
	fmt.Fprintf(w, "weekly revenue: %s, buildings: %d, projected yield per tick: %d\n",
		humanize.Comma(int64(st.WeeklyRevenue)), st.TotalBuildings, stats.ProjectedYield-stats.ProjectedMaintenance)
	return nil
}
