package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MRamiBalles/DefiCity/server/internal/events"
	"github.com/MRamiBalles/DefiCity/server/internal/infra/storage"
	"github.com/MRamiBalles/DefiCity/server/internal/platform/metrics"
)

// ledgerWriteTimeout bounds one ledger insert.
const ledgerWriteTimeout = 5 * time.Second

// LedgerPersister translates activity events to ledger entries.
type LedgerPersister struct {
	repo      storage.LedgerRepository
	sessionID string
	metrics   *metrics.Collector
}

// NewLedgerPersister writes every event of one session to repo.
func NewLedgerPersister(repo storage.LedgerRepository, sessionID string, m *metrics.Collector) *LedgerPersister {
	if m == nil {
		m = metrics.Get()
	}
	return &LedgerPersister{repo: repo, sessionID: sessionID, metrics: m}
}

func (a *LedgerPersister) Append(event events.GameEvent) error {
	start := time.Now()
	err := a.append(event)
	a.metrics.RecordLedgerWrite(time.Since(start), err)
	return err
}

func (a *LedgerPersister) append(event events.GameEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encoding payload of %s: %w", event.Type, err)
	}
	var payloadMap map[string]interface{}
	if err := json.Unmarshal(payloadBytes, &payloadMap); err != nil {
		return fmt.Errorf("payload of %s is not an object: %w", event.Type, err)
	}

	var tokens *int
	if v, ok := payloadMap["tokens"].(float64); ok {
		t := int(v)
		tokens = &t
	}

	ctx, cancel := context.WithTimeout(context.Background(), ledgerWriteTimeout)
	defer cancel()
	return a.repo.Append(ctx, storage.LedgerEntry{
		ID:        event.ID,
		SessionID: a.sessionID,
		Seq:       event.Seq,
		Timestamp: event.Timestamp,
		EventType: string(event.Type),
		ActorID:   event.ActorID,
		TargetID:  event.TargetID,
		Payload:   payloadMap,
		Tokens:    tokens,
	})
}

func ledgerCmd(flags *rootFlags) *cobra.Command {
	var (
		dbPath string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "ledger [session-id]",
		Short: "Report on past sessions recorded in the SQLite ledger",
		Long: "Without a session id, lists recent sessions and summarises the newest one.\n" +
			"The ledger is an audit trail only; it is never used to restore a city.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				cfg, err := flags.load()
				if err != nil {
					return err
				}
				dbPath = cfg.Ledger.Path
			}
			if dbPath == "" {
				return errors.New("no ledger configured: set ledger.path or pass --db")
			}
			db, err := storage.InitSQLite(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			sessionID := ""
			if len(args) == 1 {
				sessionID = args[0]
			}
			return runLedger(cmd.Context(), cmd.OutOrStdout(), storage.NewSQLiteLedgerRepository(db), sessionID, limit)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "ledger database (overrides ledger.path)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of sessions and recap lines to show")
	return cmd
}

func runLedger(ctx context.Context, w io.Writer, repo storage.LedgerRepository, sessionID string, limit int) error {
	if sessionID == "" {
		sessions, err := repo.Sessions(ctx, limit)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Fprintln(w, "No sessions recorded.")
			return nil
		}
		fmt.Fprintf(w, "SESSIONS (%d):\n", len(sessions))
		for _, s := range sessions {
			fmt.Fprintf(w, "  %s  %-8s  started %s with %s tokens\n",
				s.ID, s.Profile, humanize.Time(s.StartedAt), humanize.Comma(int64(s.StartingTokens)))
		}
		fmt.Fprintln(w)
		sessionID = sessions[0].ID
	}

	r := storage.NewReconstructor(repo)
	sum, err := r.Summarize(ctx, sessionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "SESSION %s\n", sessionID)
	fmt.Fprintf(w, "  entries:      %d\n", sum.Entries)
	fmt.Fprintf(w, "  buildings:    %d placed, %d upgraded, %d sold\n", sum.Placed, sum.Upgraded, sum.Sold)
	fmt.Fprintf(w, "  spent:        %s\n", humanize.Comma(int64(sum.Spent)))
	fmt.Fprintf(w, "  refunded:     %s\n", humanize.Comma(int64(sum.Refunded)))
	fmt.Fprintf(w, "  yield:        %s\n", humanize.Comma(int64(sum.Yield)))
	fmt.Fprintf(w, "  maintenance:  %s\n", humanize.Comma(int64(sum.Maintenance)))
	fmt.Fprintf(w, "  events:       %d\n", sum.MarketEvents)
	if sum.FinalTokens != nil {
		fmt.Fprintf(w, "  final tokens: %s\n", humanize.Comma(int64(*sum.FinalTokens)))
	}

	recap, err := r.GenerateRecap(ctx, sessionID, limit)
	if err != nil {
		return err
	}
	if len(recap) > 0 {
		fmt.Fprintf(w, "\nRECENT (%d):\n", len(recap))
		for _, e := range recap {
			fmt.Fprintf(w, "  %s  [%-8s] %s\n", e.Timestamp, e.Impact, e.Summary)
		}
	}
	return nil
}
