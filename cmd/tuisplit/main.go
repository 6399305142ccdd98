// Package main provides the CLI entrypoint for tuisplit.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/tuisplit/internal/command"
	"github.com/verte-zerg/tuisplit/internal/config"
	"github.com/verte-zerg/tuisplit/internal/durfmt"
	"github.com/verte-zerg/tuisplit/internal/model"
	"github.com/verte-zerg/tuisplit/internal/runfile"
	"github.com/verte-zerg/tuisplit/internal/session"
	"github.com/verte-zerg/tuisplit/internal/stats"
	"github.com/verte-zerg/tuisplit/internal/statsui"
	"github.com/verte-zerg/tuisplit/internal/store"
	"github.com/verte-zerg/tuisplit/internal/timer"
	"github.com/verte-zerg/tuisplit/internal/tui"
	"github.com/verte-zerg/tuisplit/internal/watch"
)

const (
	defaultStatsWindow = 10
	sendTimeout        = 5 * time.Second
)

var (
	runPath        string
	socketPath     string
	serverEnabled  bool
	dbPath         string
	archiveEnabled bool
	watchEnabled   bool
	watchDebounce  int
	showHelp       bool
	logLevel       string

	historyClear bool

	statsSince     string
	statsLast      int
	statsWindow    int
	statsCompleted bool
	statsPlain     bool

	newTitle    string
	newCategory string
	newOffset   string
	newPerPage  int
	newGold     bool
	newAutoPB   bool
	newForce    bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tuisplit",
		Short:         "TUI speedrun timer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTimerCmd,
	}

	rootCmd.PersistentFlags().StringVar(&runPath, "run", config.DefaultRunPath, "run directory (relative to the config directory)")
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "command socket path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "attempt archive path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&serverEnabled, "server", true, "listen for commands on the socket")
	rootCmd.Flags().BoolVar(&archiveEnabled, "archive", true, "record attempts in the archive")
	rootCmd.Flags().BoolVar(&watchEnabled, "watch", true, "reload the run when split.json changes")
	rootCmd.Flags().IntVar(&watchDebounce, "debounce-ms", config.DefaultDebounceMS, "watch debounce in milliseconds")
	rootCmd.Flags().BoolVar(&showHelp, "show-help", false, "show key help on start")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(newNewCmd())

	return rootCmd
}

func runTimerCmd(cmd *cobra.Command, _ []string) error {
	paths := config.DefaultPaths()
	fileCfg, err := loadFileConfig(cmd, paths)
	if err != nil {
		return err
	}
	applyBoolConfig(cmd, "server", &serverEnabled, fileCfg.Server.Enabled)
	applyBoolConfig(cmd, "archive", &archiveEnabled, fileCfg.Archive.Enabled)
	applyBoolConfig(cmd, "watch", &watchEnabled, fileCfg.Watch.Enabled)
	applyIntConfig(cmd, "debounce-ms", &watchDebounce, fileCfg.Watch.DebounceMS)
	applyBoolConfig(cmd, "show-help", &showHelp, fileCfg.Display.ShowHelp)
	if watchDebounce < 0 {
		return fmt.Errorf("--debounce-ms must be >= 0")
	}

	logger, closeLog, err := openLogFile(filepath.Join(paths.DataRoot, "tuisplit.log"))
	if err != nil {
		return err
	}
	defer closeLog()

	runDir := paths.RunDir(runPath)
	repo := runfile.New(runDir)
	created, err := repo.EnsureExists(model.SampleRun())
	if err != nil {
		return fmt.Errorf("failed to prepare run: %w", err)
	}
	if created {
		logErrf("Created sample run at %s\n", repo.Path())
	}
	run := repo.LoadOrDefault(logger)

	var archive session.Archive
	if archiveEnabled {
		st, err := store.Open(paths.DBPath(dbPath))
		if err != nil {
			logger.Warn("archive disabled", "error", err)
		} else {
			defer func() {
				if cerr := st.Close(); cerr != nil {
					logErrf("failed to close db: %v\n", cerr)
				}
			}()
			archive = st
		}
	}

	themes := tui.NewThemeStore(themeFromConfig(fileCfg.Display), func() (tui.Theme, error) {
		cfg, err := config.LoadConfig(paths.ConfigPath())
		if err != nil {
			return tui.Theme{}, err
		}
		return themeFromConfig(cfg.Display), nil
	})

	sess := session.New(repo, run, session.Options{
		Archive:  archive,
		RunKey:   runKeyFor(runDir),
		Logger:   logger,
		ShowHelp: showHelp,
		ReloadRepository: func() (session.Repository, string, error) {
			dir, err := resolveRunDir(cmd, paths)
			if err != nil {
				return nil, "", err
			}
			return runfile.New(dir), runKeyFor(dir), nil
		},
		ReloadTheme: themes.Reload,
	})

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	if serverEnabled {
		srv := command.NewServer(paths.SocketPath(socketPath), sess, logger)
		if err := srv.Listen(); err != nil {
			logger.Warn("command listener disabled", "error", err)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := srv.Serve(ctx); err != nil {
					logger.Error("command listener stopped", "error", err)
				}
			}()
		}
	}

	if watchEnabled {
		w, err := watch.New(repo.Path(), time.Duration(watchDebounce)*time.Millisecond, sess.ReloadChanged, logger)
		if err != nil {
			logger.Warn("run watcher disabled", "error", err)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.Run(ctx)
			}()
		}
	}

	program := tea.NewProgram(tui.NewModel(sess, themes), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if sess.State() != timer.NotStarted {
		sess.Reset()
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultPaths().ConfigPath()
	if _, err := config.WriteDefault(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newSendCmd() *cobra.Command {
	valid := make([]string, 0, len(command.All))
	for _, c := range command.All {
		valid = append(valid, string(c))
	}
	return &cobra.Command{
		Use:       "send <command>",
		Short:     "Send a command to the running timer",
		Long:      "Send a command to the running timer.\n\nCommands: " + strings.Join(valid, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: valid,
		RunE:      runSendCmd,
	}
}

func runSendCmd(cmd *cobra.Command, args []string) error {
	paths := config.DefaultPaths()
	if _, err := loadFileConfig(cmd, paths); err != nil {
		return err
	}
	name, err := command.Parse(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	return command.Send(ctx, paths.SocketPath(socketPath), name)
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show split, attempt and PB history of the run",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().BoolVar(&historyClear, "clear", false, "clear all history logs (keeps PB and gold times)")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	paths := config.DefaultPaths()
	runDir, err := resolveRunDir(cmd, paths)
	if err != nil {
		return err
	}
	repo := runfile.New(runDir)
	run, err := repo.Load()
	if err != nil {
		return err
	}
	if historyClear {
		sess := session.New(repo, run, session.Options{Logger: newLogger(os.Stderr)})
		if err := sess.ClearHistory(); err != nil {
			return err
		}
		logErrf("Cleared history of %s\n", repo.Path())
		return nil
	}
	return stats.RenderRunHistory(cmd.OutOrStdout(), run)
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show archived attempt stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N attempts")
	cmd.Flags().IntVar(&statsWindow, "window", defaultStatsWindow, "moving average and segment window")
	cmd.Flags().BoolVar(&statsCompleted, "completed", false, "only completed attempts")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the browser")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	paths := config.DefaultPaths()
	fileCfg, err := loadFileConfig(cmd, paths)
	if err != nil {
		return err
	}
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if statsWindow <= 0 {
		return fmt.Errorf("--window must be > 0")
	}

	filter := model.AttemptFilter{
		Since:         sinceTime,
		Last:          statsLast,
		CompletedOnly: statsCompleted,
	}
	if cmd.Flags().Changed("run") || fileCfg.Run.Path != nil {
		runDir, err := resolveRunDir(cmd, paths)
		if err != nil {
			return err
		}
		filter.RunKey = runKeyFor(runDir)
	}

	st, err := store.Open(paths.DBPath(dbPath))
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	out := cmd.OutOrStdout()
	if statsPlain || !isTerminal(out) {
		report, err := stats.BuildReport(context.Background(), st, filter, statsWindow)
		if err != nil {
			return err
		}
		return report.Render(out, statsWindow, 0, false)
	}

	browser := statsui.NewModel(st, statsui.Options{Filter: filter, Window: statsWindow})
	defer browser.Close()
	program := tea.NewProgram(browser, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List archived runs",
		Args:  cobra.NoArgs,
		RunE:  runRunsCmd,
	}
}

func runRunsCmd(cmd *cobra.Command, _ []string) error {
	paths := config.DefaultPaths()
	if _, err := loadFileConfig(cmd, paths); err != nil {
		return err
	}
	st, err := store.Open(paths.DBPath(dbPath))
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	runs, err := st.ListRuns(context.Background())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		logErrln("No archived runs yet.")
		return nil
	}
	return stats.RenderRunList(cmd.OutOrStdout(), runs)
}

func newNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <split>...",
		Short: "Create a run with the given split names",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runNewCmd,
	}
	cmd.Flags().StringVar(&newTitle, "title", "Untitled", "game title")
	cmd.Flags().StringVar(&newCategory, "category", "Any%", "category")
	cmd.Flags().StringVar(&newOffset, "offset", "", "pre-roll before 0:00 (e.g. 1.5 or 0:03)")
	cmd.Flags().IntVar(&newPerPage, "per-page", model.DefaultSplitsPerPage, "splits per page")
	cmd.Flags().BoolVar(&newGold, "gold", true, "track gold segments")
	cmd.Flags().BoolVar(&newAutoPB, "auto-pb", true, "save a new PB automatically")
	cmd.Flags().BoolVar(&newForce, "force", false, "overwrite an existing run")
	return cmd
}

func runNewCmd(cmd *cobra.Command, args []string) error {
	paths := config.DefaultPaths()
	runDir, err := resolveRunDir(cmd, paths)
	if err != nil {
		return err
	}
	if newPerPage <= 0 {
		return fmt.Errorf("--per-page must be > 0")
	}
	names := make([]string, 0, len(args))
	for _, name := range args {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return model.ErrNoSplits
	}

	run := model.NewRun(newTitle, newCategory, names)
	run.GoldSplit = newGold
	run.AutoUpdatePB = newAutoPB
	perPage := newPerPage
	run.SplitsPerPage = &perPage
	if newOffset != "" {
		offset, err := durfmt.Parse(newOffset)
		if err != nil {
			return fmt.Errorf("invalid --offset value: %w", err)
		}
		if offset < 0 {
			return fmt.Errorf("--offset must be >= 0")
		}
		ms := offset.Milliseconds()
		run.StartOffset = &ms
	}

	repo := runfile.New(runDir)
	if newForce {
		if err := repo.Save(run); err != nil {
			return err
		}
	} else {
		created, err := repo.EnsureExists(run)
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("run already exists: %s (use --force to overwrite)", repo.Path())
		}
	}
	logErrf("Wrote %s\n", repo.Path())
	return nil
}

// loadFileConfig reads the config file and applies values shared by every
// subcommand.
func loadFileConfig(cmd *cobra.Command, paths config.Paths) (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(paths.ConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "run", &runPath, fileCfg.Run.Path)
	applyStringConfig(cmd, "socket", &socketPath, fileCfg.Server.Socket)
	applyStringConfig(cmd, "db", &dbPath, fileCfg.Archive.DB)
	return fileCfg, nil
}

// resolveRunDir re-reads the config so reloads follow edits to [run] path.
func resolveRunDir(cmd *cobra.Command, paths config.Paths) (string, error) {
	if _, err := loadFileConfig(cmd, paths); err != nil {
		return "", err
	}
	return paths.RunDir(runPath), nil
}

func runKeyFor(runDir string) string {
	return filepath.Base(filepath.Clean(runDir))
}

func themeFromConfig(cfg config.DisplayConfig) tui.Theme {
	var t tui.Theme
	set := func(target *string, value *string) {
		if value != nil {
			*target = *value
		}
	}
	set(&t.Timer, cfg.Timer)
	set(&t.Split, cfg.Split)
	set(&t.Selected, cfg.Selected)
	set(&t.Ahead, cfg.Ahead)
	set(&t.Behind, cfg.Behind)
	set(&t.Gold, cfg.Gold)
	return t
}

func parseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid --log-level value: %w", err)
	}
	return level, nil
}

func newLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(logLevel)
	if err != nil {
		logErrln(err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openLogFile routes logs to a file while the TUI owns the terminal.
func openLogFile(path string) (*slog.Logger, func(), error) {
	if _, err := parseLevel(logLevel); err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := newLogger(f)
	slog.SetDefault(logger)
	return logger, func() {
		if cerr := f.Close(); cerr != nil {
			_ = cerr
		}
	}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
