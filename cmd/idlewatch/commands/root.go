package commands

import (
	"fmt"
	"os"

	"github.com/DrSkyle/idlewatch/pkg/config"
	"github.com/DrSkyle/idlewatch/pkg/version"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	flagRegion    string
	flagBucket    string
	flagTopic     string
	flagOutputDir string
	flagStrict    bool
	flagTextLogs  bool
)

var rootCmd = &cobra.Command{
	Use:   "idlewatch",
	Short: "Scheduled unused-resource reporting for AWS accounts",
	Long: `IdleWatch inspects an AWS account for resources that look abandoned
(stopped instances, detached volumes, idle load balancers and more),
stores a CSV report in S3 and publishes a summary to an SNS topic.

Designed to run on a schedule; one invocation is one complete report.`,
	Version: version.Current,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRegion, "region", "us-east-1", "AWS region to inspect")
	rootCmd.PersistentFlags().StringVar(&flagBucket, "bucket", "", "S3 bucket for the CSV report (default: write locally)")
	rootCmd.PersistentFlags().StringVar(&flagTopic, "topic", "", "SNS topic ARN for the summary notification")
	rootCmd.PersistentFlags().StringVar(&flagOutputDir, "output-dir", "idlewatch-out", "Local report directory when no bucket is set")
	rootCmd.PersistentFlags().BoolVar(&flagStrict, "strict", false, "Fail the invocation when any category listing fails")
	rootCmd.PersistentFlags().BoolVar(&flagTextLogs, "text-logs", false, "Human-readable logs instead of JSON")

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(cmd)
	})
}

func renderHelp(cmd *cobra.Command) {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00FF99")).
		MarginBottom(1)

	flagStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA"))

	fmt.Println(titleStyle.Render(fmt.Sprintf("IDLEWATCH %s", version.Current)))
	fmt.Println(cmd.Short)

	fmt.Println(titleStyle.Render("USAGE"))
	fmt.Printf("  %s\n\n", cmd.UseLine())

	if cmd.HasAvailableSubCommands() {
		fmt.Println(titleStyle.Render("COMMANDS"))
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() {
				fmt.Printf("  %-12s %s\n", c.Name(), c.Short)
			}
		}
		fmt.Println("")
	}

	fmt.Println(titleStyle.Render("FLAGS"))
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		output := fmt.Sprintf("  --%-15s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" {
			output += fmt.Sprintf(" (default %s)", f.DefValue)
		}
		fmt.Println(flagStyle.Render(output))
	})
	fmt.Println("")
}

// loadConfig layers environment values over defaults, then explicit flags
// over both.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return config.Config{}, err
	}

	f := cmd.Flags()
	if f.Changed("region") {
		cfg.Region = flagRegion
	}
	if f.Changed("bucket") {
		cfg.ReportBucket = flagBucket
	}
	if f.Changed("topic") {
		cfg.TopicARN = flagTopic
	}
	if f.Changed("output-dir") {
		cfg.OutputDir = flagOutputDir
	}
	if f.Changed("strict") {
		cfg.StrictMode = flagStrict
	}
	if f.Changed("text-logs") {
		cfg.JSONLogs = !flagTextLogs
	}

	return cfg, cfg.Validate()
}
