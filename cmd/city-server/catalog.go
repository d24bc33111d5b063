package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MRamiBalles/DefiCity/server/internal/domain/catalog"
	"github.com/MRamiBalles/DefiCity/server/internal/economy"
)

func catalogCmd(flags *rootFlags) *cobra.Command {
	var (
		asYAML  bool
		levels  int
		eventID string
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the building and event catalog with per-level costs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			cat, err := catalog.LoadOrDefault(cfg.Game.Catalog)
			if err != nil {
				return err
			}
			if eventID != "" {
				return printEvent(cmd.OutOrStdout(), cat, eventID)
			}
			if asYAML {
				data, err := cat.Marshal()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			printCatalog(cmd.OutOrStdout(), cat, levels)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "dump the catalog as YAML, usable as game.catalog")
	cmd.Flags().IntVarP(&levels, "levels", "l", 5, "number of levels to price")
	cmd.Flags().StringVar(&eventID, "event", "", "show the yield multiplier one event applies to each building type")
	return cmd
}

func printCatalog(w io.Writer, cat *catalog.Catalog, levels int) {
	if levels < 1 {
		levels = 1
	}
	fmt.Fprintf(w, "BUILDINGS (%d):\n", len(cat.Buildings))
	for _, bt := range cat.Buildings {
		fmt.Fprintf(w, "  %-12s %-20s %-15s risk %d  yield %d  upkeep %d\n",
			bt.ID, bt.Name, bt.Category, bt.RiskLevel, bt.BaseYield, bt.MaintenanceCost)
		fmt.Fprint(w, "    cost:")
		for level := 1; level <= levels; level++ {
			fmt.Fprintf(w, "  L%d %s", level, humanize.Comma(int64(economy.BuildingCost(bt, level))))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\nEVENTS (%d):\n", len(cat.Events))
	for _, ev := range cat.Events {
		fmt.Fprintf(w, "  %-18s %-26s %-8s %d ticks  p=%.2f\n", ev.ID, ev.Title, ev.Kind, ev.Duration, ev.Probability)
		for _, eff := range ev.Effects {
			fmt.Fprintf(w, "    x%.2f %s\n", eff.Modifier, eff.Target)
		}
	}
}

func printEvent(w io.Writer, cat *catalog.Catalog, id string) error {
	ev, ok := cat.Event(id)
	if !ok {
		return fmt.Errorf("unknown event %q", id)
	}
	fmt.Fprintf(w, "%s (%s, %s, %d ticks)\n", ev.Title, ev.ID, ev.Kind, ev.Duration)
	for _, bt := range cat.Buildings {
		m := economy.Modifier(bt, ev)
		if m == 1 {
			continue
		}
		fmt.Fprintf(w, "  %-12s x%.2f\n", bt.ID, m)
	}
	return nil
}
