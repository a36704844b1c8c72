package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	naturaldate "github.com/tj/go-naturaldate"

	"github.com/christopherklint97/focusd/internal/activity"
	"github.com/christopherklint97/focusd/internal/analyzer"
	"github.com/christopherklint97/focusd/internal/config"
	"github.com/christopherklint97/focusd/internal/daemon"
	"github.com/christopherklint97/focusd/internal/notify"
	"github.com/christopherklint97/focusd/internal/summary"
	"github.com/christopherklint97/focusd/internal/tui"
	"github.com/christopherklint97/focusd/internal/usage"
)

var rootCmd = &cobra.Command{
	Use:   "focusd",
	Short: "Ambient focus monitor powered by AI",
	Long:  "focusd watches your screen, classifies what you're doing against your own focus rules, nags you with escalating urgency when you drift, and scores each day against your history.",
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the focus monitor daemon",
	RunE:  runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the daemon is doing right now",
	RunE:  runStatus,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of status and today's score",
	RunE:  runWatch,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded activity",
	RunE:  runHistory,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Generate and show a day's productivity summary",
	RunE:  runSummary,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	RunE:  runConfig,
}

func init() {
	historyCmd.Flags().String("since", "1 hour ago", "Show records since this time (natural language)")
	summaryCmd.Flags().String("day", "today", "Day to summarize (natural language)")
	summaryCmd.Flags().Int("recent", 0, "List the last N summarized days instead")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newGenerator(cfg *config.Config) (*summary.Generator, error) {
	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	logPath, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	return summary.NewGenerator(dataDir, logPath), nil
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.AI.APIKey == "" {
		return fmt.Errorf("no API key configured: set OPENAI_API_KEY or run 'focusd config'")
	}

	logger := newLogger(cfg)
	provider := analyzer.NewOpenAI(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model, cfg.AI.MaxTokens, logger)

	d, err := daemon.New(cfg, provider, notify.DesktopSink{}, usage.FrontmostApp, logger)
	if err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Println("\nShutting down focusd...")
		d.Stop()
	}()

	return d.Run()
}

func runStop(cmd *cobra.Command, args []string) error {
	pid, err := daemon.ReadPID()
	if err != nil {
		return err
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("stopping daemon (pid %d): %w", pid, err)
	}

	fmt.Printf("Sent stop signal to focusd (pid %d)\n", pid)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	status, err := daemon.ReadStatus()
	if err != nil {
		return err
	}

	if !status.Running || time.Since(status.UpdatedAt) > 5*time.Minute {
		fmt.Println("focusd is not running")
		return nil
	}

	fmt.Printf("Status:   %s\n", status.State)
	if status.Activity != "" {
		fmt.Printf("Activity: %s\n", status.Activity)
	}
	if status.StreakStatus != "" {
		fmt.Printf("Streak:   %s for %.0fs\n", status.StreakStatus, status.StreakSeconds)
	}
	if status.TopApp != "" {
		fmt.Printf("Top app:  %s\n", status.TopApp)
	}
	fmt.Printf("Updated:  %s\n", status.UpdatedAt.Format("15:04:05"))
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	gen, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	p := tea.NewProgram(tui.NewWatch(gen))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logPath, err := cfg.LogPath()
	if err != nil {
		return err
	}

	sinceStr, _ := cmd.Flags().GetString("since")
	since, err := naturaldate.Parse(sinceStr, time.Now(), naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		return fmt.Errorf("parsing --since %q: %w", sinceStr, err)
	}

	records := activity.ReadSince(logPath, since)
	if len(records) == 0 {
		fmt.Println("No activity recorded.")
		return nil
	}

	for _, rec := range records {
		fmt.Printf("[%s] %-8s %s\n", rec.Timestamp.Local().Format("15:04:05"), rec.Status, rec.Description)
	}
	return nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	gen, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	if recent, _ := cmd.Flags().GetInt("recent"); recent > 0 {
		days := gen.Recent(recent)
		if len(days) == 0 {
			fmt.Println("No summaries yet.")
			return nil
		}
		for _, s := range days {
			fmt.Printf("%s  %5.1f  %s\n", s.Date, s.Score, s.Ranking)
		}
		return nil
	}

	dayStr, _ := cmd.Flags().GetString("day")
	day, err := naturaldate.Parse(dayStr, time.Now(), naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		return fmt.Errorf("parsing --day %q: %w", dayStr, err)
	}

	s, err := gen.Generate(day)
	if err != nil {
		return fmt.Errorf("generating summary: %w", err)
	}

	fmt.Printf("%s\n", s.DisplayDate)
	fmt.Printf("  Score:    %.1f (%s)\n", s.Score, s.Ranking)
	fmt.Printf("  On task:  %.1f%%  Off task: %.1f%%\n", s.OnTaskPct, s.OffTaskPct)
	fmt.Printf("  Checks:   %d  Tracked: %d min\n", s.Checks, s.TrackedMinutes)
	if len(s.TopApps) > 0 {
		fmt.Println("  Top apps:")
		for _, app := range s.TopApps {
			fmt.Printf("    %6.1f min  %s\n", app.Minutes, app.App)
		}
	}
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		defaults := config.DefaultConfig()
		data, err := toml.Marshal(defaults)
		if err != nil {
			return fmt.Errorf("marshaling default config: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	c := exec.Command(editor, path)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}
