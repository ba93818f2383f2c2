package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build).
var version = "dev"

const inboxSize = 16

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jobtail [flags] [-- squeue args...]",
		Short: "Watch your Slurm queue and follow job output",
		Long: `jobtail shows the Slurm job queue next to a live view of the selected
job's stdout or stderr file.

Arguments after -- are passed to squeue and select the jobs shown in the
all jobs view (default: the current user's jobs).

Examples:
  jobtail
  jobtail -- --partition gpu
  jobtail --slurm-refresh 5 --log-file ~/.cache/jobtail.log`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return runDashboard(cmd.Context(), cfg, cfg.QueryArgs(args))
		},
	}

	registerConfigFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			out, err := cfg.TOML()
			if err != nil {
				return err
			}
			if file := cfg.ConfigFile(); file != "" {
				fmt.Fprintln(cmd.OutOrStdout(), color.New(color.Faint).Sprintf("# %s", file))
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "jobtail %s\n", version)
		},
	}
}

func runDashboard(parent context.Context, cfg *Config, args []string) error {
	if parent == nil {
		parent = context.Background()
	}

	logger, closeLog, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	applyTheme(cfg.Theme, cfg.Surfaces, cfg.Palette)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	inbox := make(chan tea.Msg, inboxSize)
	queue := NewQueueWatcher(inbox, cfg.SlurmRefresh, args, nil).WithLogger(logger)
	files := NewFileWatcher(inbox, cfg.FileRefresh).WithLogger(logger).WithMaxBytes(cfg.MaxFileBytes)

	logger.Info("starting",
		slog.String("squeue.args", strings.Join(args, " ")),
		slog.Duration("slurm_refresh", cfg.SlurmRefresh),
		slog.Duration("file_refresh", cfg.FileRefresh),
	)

	queue.Start(ctx)
	files.Start(ctx)

	model := NewModel(ModelOptions{
		Inbox:  inbox,
		Queue:  queue,
		Files:  files,
		Logger: logger,
		Args:   args,
	})
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithFPS(cfg.FPS),
		tea.WithContext(ctx),
	)
	_, runErr := p.Run()

	cancel()
	queue.Wait()
	files.Wait()

	if runErr != nil {
		logger.Error("dashboard stopped", slog.Any("error", runErr))
		return fmt.Errorf("run dashboard: %w", runErr)
	}
	logger.Info("stopped")
	return nil
}
