package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vidshrink/internal/batch"
	"vidshrink/internal/config"
	"vidshrink/internal/logging"
	"vidshrink/internal/preset"
	"vidshrink/internal/workflow"
)

func newCompressCommand(ctx *commandContext) *cobra.Command {
	var presetFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "compress <video>...",
		Short: "Compress videos with one preset",
		Long: "Compress each video in order with the selected preset. Output frames are capped\n" +
			"at 720p (high), 480p (medium) or 360p (low) and the audio track is removed.\n" +
			"Press Ctrl-C to cancel the current video and stop the batch.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			value := presetFlag
			if strings.TrimSpace(value) == "" {
				value = cfg.Compression.DefaultPreset
			}
			quality, err := preset.Parse(value)
			if err != nil {
				return err
			}
			sources, err := expandSources(args)
			if err != nil {
				return err
			}

			var progress batch.Observer = batch.ObserverFuncs{}
			if !jsonOutput {
				progress = newProgressPrinter(cmd.ErrOrStderr())
			}

			return ctx.withManager(managerNeeds{}, func(manager *workflow.Manager) error {
				result, err := manager.Compress(cmd.Context(), sources, quality)
				if msg := result.Gate.Message(); msg != "" && !jsonOutput {
					fmt.Fprintln(cmd.OutOrStdout(), msg)
					for _, denial := range result.Gate.Denied {
						fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", denial.Path, denial.Reason)
					}
				}
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, result)
				}
				printOutcomes(cmd.OutOrStdout(), result.Outcomes, result.Savings)
				fmt.Fprintln(cmd.OutOrStdout(), result.Summary())
				return nil
			}, workflow.WithObserver(progress))
		},
	}

	cmd.Flags().StringVarP(&presetFlag, "preset", "p", "", "Quality preset: high, medium, or low (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the batch result as JSON")
	return cmd
}

func expandSources(args []string) ([]string, error) {
	sources := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.TrimSpace(arg) == "" {
			continue
		}
		path, err := config.ExpandPath(arg)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", arg, err)
		}
		sources = append(sources, path)
	}
	if len(sources) == 0 {
		return nil, errors.New("no videos selected")
	}
	return sources, nil
}

func printOutcomes(out io.Writer, outcomes []batch.Outcome, savings []workflow.Savings) {
	if len(outcomes) == 0 {
		return
	}
	rows := make([][]string, 0, len(outcomes))
	for i, outcome := range outcomes {
		detail := outcome.OutputPath
		if outcome.Kind == batch.OutcomeFailed {
			detail = outcome.Reason
		}
		original, compressed, saved := "", "", ""
		if i < len(savings) && savings[i].Known() {
			original = humanize.IBytes(uint64(savings[i].OriginalBytes))
			compressed = humanize.IBytes(uint64(savings[i].CompressedBytes))
			saved = fmt.Sprintf("%.1f%%", savings[i].Percent())
		}
		rows = append(rows, []string{
			strconv.Itoa(outcome.Index + 1),
			filepath.Base(outcome.Source),
			string(outcome.Kind),
			original,
			compressed,
			saved,
			detail,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Source", "Result", "Original", "Compressed", "Saved", "Output / Reason"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	))
}

// progressPrinter renders batch progress as plain lines on stderr, one per
// 10% of the current item, with an estimate of the time left in the batch.
type progressPrinter struct {
	out      io.Writer
	sampler  *logging.ProgressSampler
	now      func() time.Time
	started  time.Time
	finished bool
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, sampler: logging.NewProgressSampler(10), now: time.Now}
}

func (p *progressPrinter) ItemStarted(index, total int, source, _ string) {
	if p.started.IsZero() {
		p.started = p.now()
	}
	p.finished = false
	p.sampler.Reset()
	fmt.Fprintf(p.out, "[%d/%d] %s\n", index+1, total, filepath.Base(source))
}

func (p *progressPrinter) Progress(progress batch.Progress) {
	// The orchestrator reports the settled batch position after an item
	// resolves; that line would repeat "100%" below "done".
	if p.finished {
		return
	}
	key := strconv.Itoa(progress.Index)
	if !p.sampler.ShouldLog(progress.Item*100, key) {
		return
	}
	line := fmt.Sprintf("  %3.0f%% (batch %.0f%%", progress.Item*100, progress.Percent())
	if eta, ok := p.remaining(progress.Overall); ok {
		line += ", about " + eta.String() + " left"
	}
	fmt.Fprintln(p.out, line+")")
}

// remaining extrapolates the time left from the elapsed time and overall
// progress. No estimate is given until some progress has been made.
func (p *progressPrinter) remaining(overall float64) (time.Duration, bool) {
	if p.started.IsZero() || overall <= 0.01 || overall >= 1 {
		return 0, false
	}
	elapsed := p.now().Sub(p.started)
	left := time.Duration(float64(elapsed) * (1 - overall) / overall)
	return left.Round(time.Second), true
}

func (p *progressPrinter) ItemFinished(outcome batch.Outcome) {
	p.finished = true
	switch outcome.Kind {
	case batch.OutcomeSucceeded:
		fmt.Fprintf(p.out, "  done: %s\n", outcome.OutputPath)
	case batch.OutcomeFailed:
		fmt.Fprintf(p.out, "  failed: %s\n", outcome.Reason)
	default:
		fmt.Fprintln(p.out, "  canceled")
	}
}

func (p *progressPrinter) BatchFinished(*batch.Job) {}
