package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/DrSkyle/idlewatch/pkg/engine"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var flagEventFile string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one inspection and report cycle",
	Long: `Run the full pipeline once: inspect every resource category, store the
CSV report and publish the summary notification.

Example:
  idlewatch run --region us-west-2 --bucket my-reports --topic arn:aws:sns:...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx := context.Background()

		opts := []engine.Option{engine.WithConfig(cfg)}
		if !cfg.JSONLogs {
			handler := slog.NewTextHandler(os.Stderr, nil)
			opts = append(opts, engine.WithLogger(slog.New(handler)))
		}

		eng, err := engine.New(ctx, opts...)
		if err != nil {
			return err
		}

		ev := engine.ManualEvent()
		if flagEventFile != "" {
			data, err := os.ReadFile(flagEventFile)
			if err != nil {
				return fmt.Errorf("failed to read event file: %w", err)
			}
			if ev, err = engine.ParseEvent(data); err != nil {
				return err
			}
		}

		result, runErr := eng.Run(ctx, ev)
		printSummary(result)

		if runErr != nil {
			cmd.SilenceUsage = true
			return runErr
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&flagEventFile, "event", "", "Path to a JSON trigger payload (default: manual event)")
}

var (
	okStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00FF99"))

	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5555"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
)

func printSummary(result engine.InvocationResult) {
	status := okStyle.Render("SUCCESS")
	if result.Status != engine.StatusSuccess {
		status = failStyle.Render("FAILURE")
	}

	fmt.Printf("\n%s  %s\n", status, dimStyle.Render(fmt.Sprintf("%d unused resources", result.FindingsCount)))
	if result.Location != "" {
		fmt.Printf("%s\n", dimStyle.Render("Report: "+result.Location))
	}
}
