package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"vidshrink/internal/config"
	"vidshrink/internal/platform"
	"vidshrink/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check directories, binaries, and integrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			printSection(stdout, "Directories", colorize, directoryLines(cfg, colorize))
			printSection(stdout, "Dependencies", colorize, dependencyLines(preflight.CheckSystemDeps(cmd.Context(), cfg), colorize))
			printSection(stdout, "Integrations", colorize, integrationLines(cfg, colorize))
			return nil
		},
	}
}

func printSection(out io.Writer, title string, colorize bool, lines []string) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)
}

func directoryLines(cfg *config.Config, colorize bool) []string {
	results := preflight.RunAll(cfg)
	lines := make([]string, 0, len(results))
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			kind = statusError
			// The library may live on removable storage; compression still works.
			if result.Name == "Library directory" {
				kind = statusWarn
			}
		}
		lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	return lines
}

func integrationLines(cfg *config.Config, colorize bool) []string {
	var lines []string

	if caps, err := platform.Resolve(cfg.Platform.Profile); err == nil {
		deletion := "per-item deletion"
		if caps.BatchDelete {
			deletion = "batched deletion"
		}
		publish := "copy then record"
		if caps.PendingPublish {
			publish = "pending publish"
		}
		lines = append(lines, renderStatusLine("Platform", statusInfo,
			fmt.Sprintf("%s (%s, %s)", caps.Profile, deletion, publish), colorize))
	}

	backend := strings.ToLower(cfg.Share.Backend)
	detail := backend
	switch backend {
	case "s3":
		detail = fmt.Sprintf("s3://%s (%s)", cfg.Share.S3.Bucket, cfg.Share.S3.Region)
	case "gcs":
		detail = "gs://" + cfg.Share.GCS.Bucket
	case "sftp":
		detail = fmt.Sprintf("sftp://%s@%s:%d%s", cfg.Share.SFTP.User, cfg.Share.SFTP.Host, cfg.Share.SFTP.Port, cfg.Share.SFTP.RemoteDir)
	case "local":
		detail = "local signed grants (key " + cfg.ShareKeyPath() + ")"
	}
	lines = append(lines, renderStatusLine("Share", statusInfo, detail, colorize))

	if cfg.Notifications.NtfyTopic == "" {
		lines = append(lines, renderStatusLine("Notifications", statusWarn, "ntfy topic not configured", colorize))
	} else {
		lines = append(lines, renderStatusLine("Notifications", statusOK, cfg.Notifications.NtfyTopic, colorize))
	}
	return lines
}
