package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidshrink/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded batches",
	}

	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))

	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent batches, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			batches, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, batches)
			}
			out := cmd.OutOrStdout()
			if len(batches) == 0 {
				fmt.Fprintln(out, "No batches recorded")
				return nil
			}
			rows := make([][]string, 0, len(batches))
			for _, b := range batches {
				rows = append(rows, []string{
					shortID(b.ID),
					b.CreatedAt.Local().Format("2006-01-02 15:04"),
					b.Preset,
					strconv.Itoa(b.Total),
					string(b.Status),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Started", "Preset", "Videos", "Status"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of batches to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit batches as JSON")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show [batch-id]",
		Short: "Show one batch (the latest when no id is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			b, err := lookupBatch(cmd, store, args)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, b)
			}

			out := cmd.OutOrStdout()
			counts := b.Counts()
			fmt.Fprintf(out, "Batch:    %s\n", b.ID)
			fmt.Fprintf(out, "Preset:   %s\n", b.Preset)
			fmt.Fprintf(out, "Started:  %s\n", b.CreatedAt.Local().Format(time.RFC1123))
			if b.CompletedAt != nil {
				fmt.Fprintf(out, "Finished: %s (%s)\n", b.CompletedAt.Local().Format(time.RFC1123), b.CompletedAt.Sub(b.CreatedAt).Round(time.Second))
			} else {
				fmt.Fprintln(out, "Finished: no (interrupted or still running)")
			}
			fmt.Fprintf(out, "Results:  %d succeeded, %d canceled, %d failed, %d pending\n",
				counts[history.ItemSucceeded], counts[history.ItemCanceled], counts[history.ItemFailed], counts[history.ItemPending])

			rows := make([][]string, 0, len(b.Items))
			for _, item := range b.Items {
				detail := item.OutputPath
				if item.Status == history.ItemFailed {
					detail = item.Reason
				}
				rows = append(rows, []string{
					strconv.Itoa(item.Index + 1),
					filepath.Base(item.Source),
					string(item.Status),
					detail,
					yesNo(item.Published()),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Source", "Result", "Output / Reason", "Saved"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the batch as JSON")
	return cmd
}

// lookupBatch resolves a full id or a unique prefix as printed by history list.
func lookupBatch(cmd *cobra.Command, store *history.Store, args []string) (*history.Batch, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		b, err := store.Latest(cmd.Context())
		if errors.Is(err, history.ErrBatchNotFound) {
			return nil, errors.New("no batches recorded")
		}
		return b, err
	}
	id := strings.TrimSpace(args[0])
	b, err := store.Get(cmd.Context(), id)
	if err == nil || !errors.Is(err, history.ErrBatchNotFound) {
		return b, err
	}

	batches, listErr := store.List(cmd.Context(), 0)
	if listErr != nil {
		return nil, listErr
	}
	var match string
	for _, candidate := range batches {
		if strings.HasPrefix(candidate.ID, id) {
			if match != "" {
				return nil, fmt.Errorf("batch id %q is ambiguous", id)
			}
			match = candidate.ID
		}
	}
	if match == "" {
		return nil, err
	}
	return store.Get(cmd.Context(), match)
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if reset {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				if err := history.Reset(cfg.HistoryPath()); err != nil {
					return err
				}
				fmt.Fprintln(out, "History database removed")
				return nil
			}

			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()
			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Cleared %d batches\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Remove the database file itself (use after a schema change)")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
