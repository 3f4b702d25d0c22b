package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidshrink/internal/originals"
	"vidshrink/internal/share"
	"vidshrink/internal/workflow"
)

func newSaveCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save compressed videos from the latest batch to the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(managerNeeds{library: true}, func(manager *workflow.Manager) error {
				result, err := manager.Save(cmd.Context(), all)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, result)
				}
				printSaveResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Save every compressed video of the batch instead of the first")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the result as JSON")
	return cmd
}

func printSaveResult(out io.Writer, result workflow.SaveResult) {
	for _, issue := range result.Skipped {
		fmt.Fprintf(out, "Skipped #%d: %s\n", issue.Index+1, issue.Reason)
	}
	for _, issue := range result.Failed {
		fmt.Fprintf(out, "Failed #%d: %s\n", issue.Index+1, issue.Reason)
	}
	fmt.Fprintln(out, result.Summary())
}

func newShareCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "share",
		Short: "Share compressed videos from the latest batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(managerNeeds{share: true}, func(manager *workflow.Manager) error {
				result, err := manager.Share(cmd.Context(), all)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				for _, failure := range result.Failures {
					fmt.Fprintf(out, "Not shared %s: %s\n", failure.Path, failure.Reason)
				}
				for _, link := range result.Links {
					fmt.Fprintln(out, link.URL)
					if !link.ExpiresAt.IsZero() {
						fmt.Fprintf(out, "  expires %s\n", link.ExpiresAt.Local().Format(time.RFC1123))
					}
				}
				if result.Backend == "local" {
					fmt.Fprintln(out, "Open with: vidshrink share open <token>")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Share every compressed video of the batch instead of the first")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the result as JSON")
	cmd.AddCommand(newShareOpenCommand(ctx))
	return cmd
}

func newShareOpenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "open <token>",
		Short: "Verify a local share grant and print the files it covers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			key, err := share.LoadOrCreateKey(cfg.ShareKeyPath())
			if err != nil {
				return err
			}
			paths, err := share.NewLocal(key, cfg.Share.LinkTTL()).Open(args[0])
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return errors.New("the shared files no longer exist")
			}
			for _, path := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
}

func newReplaceCommand(ctx *commandContext) *cobra.Command {
	var batchMode bool
	var assumeYes bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "replace",
		Short: "Save the compressed video and delete its original",
		Long: "Save the first compressed video of the latest batch to the library and delete\n" +
			"the original it was made from. With --batch every compressed video is saved\n" +
			"and the originals of all saved videos are deleted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []workflow.Option{}
			if !assumeYes {
				prompt := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
				opts = append(opts,
					workflow.WithReplaceConfirmer(prompt.confirmer("Replace %d original video(s) with the compressed version?")),
					workflow.WithConfirmer(prompt.confirmer("Allow deleting %d original video(s)?")),
				)
			}
			return ctx.withManager(managerNeeds{library: true}, func(manager *workflow.Manager) error {
				run := manager.Replace
				if batchMode {
					run = manager.ReplaceBatch
				}
				result, err := run(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				if result.Declined {
					fmt.Fprintln(out, result.Summary())
					return nil
				}
				printSaveResult(out, result.Save)
				for _, failure := range result.Delete.Failures {
					fmt.Fprintf(out, "Not deleted %s: %s\n", failure.Path, failure.Reason)
				}
				fmt.Fprintln(out, result.Delete.Summary())
				return nil
			}, opts...)
		},
	}

	cmd.Flags().BoolVar(&batchMode, "batch", false, "Replace every original of the batch")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Delete without asking for confirmation")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the result as JSON")
	return cmd
}

// prompter asks y/N questions on out and reads answers from one shared
// reader, so consecutive questions see consecutive input lines.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// confirmer returns a Confirmer printing question (formatted with the file
// count) followed by the paths.
func (p *prompter) confirmer(question string) originals.Confirmer {
	return originals.ConfirmFunc(func(_ context.Context, paths []string) (bool, error) {
		fmt.Fprintf(p.out, question+"\n", len(paths))
		for _, path := range paths {
			fmt.Fprintf(p.out, "  %s\n", path)
		}
		fmt.Fprint(p.out, "[y/N] ")
		answer, err := p.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	})
}
