package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vidshrink/internal/config"
	"vidshrink/internal/library"
	"vidshrink/internal/media/ffprobe"
	"vidshrink/internal/platform"
	"vidshrink/internal/preset"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Inspect the library catalog",
	}
	libraryCmd.AddCommand(newLibraryListCommand(ctx))
	return libraryCmd
}

func newLibraryListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List videos saved to the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			caps, err := platform.Resolve(cfg.Platform.Profile)
			if err != nil {
				return err
			}
			lib, closeLib, err := ctx.openLibrary(logger, caps.PendingPublish)
			if err != nil {
				return err
			}
			defer closeLib()

			entries, err := lib.Entries()
			if err != nil {
				return err
			}
			if jsonOutput {
				if entries == nil {
					entries = []library.Entry{}
				}
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "Library %s is empty\n", lib.Dir())
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				title := entry.Title
				if entry.Pending {
					title += " (pending)"
				}
				rows = append(rows, []string{
					title,
					humanize.IBytes(uint64(max(entry.Size, 0))),
					humanize.Time(entry.AddedAt),
					entry.Path,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Title", "Size", "Added", "Path"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit entries as JSON")
	return cmd
}

type videoInfo struct {
	Path       string           `json:"path"`
	Resolution string           `json:"resolution,omitempty"`
	Duration   float64          `json:"duration_seconds"`
	SizeBytes  int64            `json:"size_bytes"`
	BitRate    int64            `json:"bit_rate"`
	AudioCount int              `json:"audio_streams"`
	Estimates  map[string]int64 `json:"estimates"`
}

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info <video>",
		Short: "Show video details and the estimated size for each preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			probe, err := ffprobe.Inspect(cmd.Context(), cfg.Compression.FFprobeBinary, path)
			if err != nil {
				return err
			}
			info := describeVideo(path, probe)
			if info.SizeBytes == 0 {
				if stat, statErr := os.Stat(path); statErr == nil {
					info.SizeBytes = stat.Size()
					info.Estimates = estimates(info.SizeBytes, info.BitRate, info.Resolution)
				}
			}
			if jsonOutput {
				return writeJSON(cmd, info)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:       %s\n", info.Path)
			fmt.Fprintf(out, "Resolution: %s\n", valueOr(info.Resolution, "unknown"))
			fmt.Fprintf(out, "Duration:   %s\n", (time.Duration(info.Duration * float64(time.Second))).Round(time.Second))
			fmt.Fprintf(out, "Size:       %s\n", humanize.IBytes(uint64(info.SizeBytes)))
			if info.BitRate > 0 {
				fmt.Fprintf(out, "Bitrate:    %d kbps\n", info.BitRate/1000)
			}
			fmt.Fprintf(out, "Audio:      %d stream(s)\n", info.AudioCount)

			rows := make([][]string, 0, len(preset.All))
			for _, q := range preset.All {
				rows = append(rows, []string{
					q.String(),
					q.Resolution(),
					humanize.IBytes(uint64(info.Estimates[q.String()])),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Preset", "Target", "Estimated size"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit details as JSON")
	return cmd
}

func describeVideo(path string, probe ffprobe.Result) videoInfo {
	info := videoInfo{
		Path:       path,
		Resolution: probe.Resolution(),
		Duration:   probe.DurationSeconds(),
		SizeBytes:  probe.SizeBytes(),
		BitRate:    probe.BitRate(),
		AudioCount: probe.AudioStreamCount(),
	}
	info.Estimates = estimates(info.SizeBytes, info.BitRate, info.Resolution)
	return info
}

func estimates(size, bitRate int64, resolution string) map[string]int64 {
	out := make(map[string]int64, len(preset.All))
	for _, q := range preset.All {
		out[q.String()] = int64(preset.EstimateFor(q, size, int(bitRate/1000), resolution))
	}
	return out
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
