package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/hylla/taskflow/internal/adapters/events/redispub"
	serveradapter "github.com/hylla/taskflow/internal/adapters/server"
	servercommon "github.com/hylla/taskflow/internal/adapters/server/common"
	"github.com/hylla/taskflow/internal/adapters/storage/sqlite"
	"github.com/hylla/taskflow/internal/app"
	"github.com/hylla/taskflow/internal/config"
	"github.com/hylla/taskflow/internal/domain"
	"github.com/hylla/taskflow/internal/platform"
	"github.com/hylla/taskflow/internal/tui"
	"github.com/spf13/cobra"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

// main handles main.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	appName    string
	devMode    bool
}

// run runs the requested command flow.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// newRootCommand builds the command tree.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{appName: "taskflow", devMode: version == "dev"}
	if envDev, ok := parseBoolEnv("TASKFLOW_DEV_MODE"); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("TASKFLOW_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}

	root := &cobra.Command{
		Use:           "taskflow",
		Short:         "A terminal kanban board with drag and drop",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config TOML")
	root.PersistentFlags().StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	root.PersistentFlags().BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newServeCommand(opts, stderr),
		newBoardCommand(opts, stdout, stderr),
		newPathsCommand(opts, stdout),
		newInitConfigCommand(opts, stdout),
	)
	return root
}

// newServeCommand builds the serve subcommand.
func newServeCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var (
		httpBind    string
		apiEndpoint string
		mcpEndpoint string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board over HTTP and MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := loadEnvironment(opts, stderr, false)
			if err != nil {
				return err
			}
			defer env.close(stderr)
			if httpBind != "" {
				env.cfg.Server.Bind = httpBind
			}
			if apiEndpoint != "" {
				env.cfg.Server.APIEndpoint = apiEndpoint
			}
			if mcpEndpoint != "" {
				env.cfg.Server.MCPEndpoint = mcpEndpoint
			}
			return runServe(cmd.Context(), env)
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "HTTP listen address (default from config)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "REST API base path (default from config)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP endpoint path (default from config)")
	return cmd
}

// newBoardCommand builds the board subcommand.
func newBoardCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Print the startup board",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			env, err := loadEnvironment(opts, stderr, false)
			if err != nil {
				return err
			}
			defer env.close(stderr)
			session, closeSession, err := newSession(env.cfg, env.logger)
			if err != nil {
				return err
			}
			defer closeSession()
			if asJSON {
				return writeSnapshotJSON(stdout, session.Snapshot())
			}
			_, err = fmt.Fprintln(stdout, renderBoardTable(session.Board()))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the board as snapshot JSON")
	return cmd
}

// newPathsCommand builds the paths subcommand.
func newPathsCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			paths, err := platform.DefaultPathsWithOptions(platform.Options{
				AppName: opts.appName,
				DevMode: opts.devMode,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", resolveConfigPath(opts, paths))
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			return nil
		},
	}
}

// newInitConfigCommand builds the init-config subcommand.
func newInitConfigCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write the default config TOML",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			paths, err := platform.DefaultPathsWithOptions(platform.Options{
				AppName: opts.appName,
				DevMode: opts.devMode,
			})
			if err != nil {
				return err
			}
			configPath := resolveConfigPath(opts, paths)
			if err := config.WriteDefault(configPath, force); err != nil {
				return fmt.Errorf("write default config: %w", err)
			}
			_, _ = fmt.Fprintf(stdout, "wrote %s\n", configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

// environment bundles resolved config and logging for one command run.
type environment struct {
	appName    string
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
}

// loadEnvironment resolves paths, loads config and configures logging.
// muteConsole keeps every runtime log line off stderr.
func loadEnvironment(opts *rootOptions, stderr io.Writer, muteConsole bool) (environment, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return environment{}, err
	}
	configPath := resolveConfigPath(opts, paths)
	cfg, err := config.Load(configPath, config.Default())
	if err != nil {
		return environment{}, fmt.Errorf("load config %q: %w", configPath, err)
	}
	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return environment{}, fmt.Errorf("configure runtime logger: %w", err)
	}
	logger.SetConsoleEnabled(!muteConsole)
	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode)
	logger.Debug("runtime paths resolved", "config_path", configPath, "config_dir", paths.ConfigDir(), "data_dir", paths.DataDir)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}
	return environment{
		appName:    opts.appName,
		configPath: configPath,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// close releases the runtime logger.
func (e environment) close(stderr io.Writer) {
	if closeErr := e.logger.Close(); closeErr != nil && e.logger.shouldLogToSink(e.logger.consoleSink) {
		_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
	}
}

// resolveConfigPath applies flag, env and platform precedence.
func resolveConfigPath(opts *rootOptions, paths platform.Paths) string {
	if path := strings.TrimSpace(opts.configPath); path != "" {
		return path
	}
	if envPath := strings.TrimSpace(os.Getenv("TASKFLOW_CONFIG")); envPath != "" {
		return envPath
	}
	return paths.ConfigPath
}

// runTUI runs the interactive board.
func runTUI(ctx context.Context, opts *rootOptions, stderr io.Writer) error {
	// Keep TUI rendering clean: runtime logs stay in the dev-file sink while the board is active.
	env, err := loadEnvironment(opts, stderr, true)
	if err != nil {
		return err
	}
	defer env.close(stderr)

	session, closeSession, err := newSession(env.cfg, env.logger)
	if err != nil {
		env.logger.Error("session setup failed", "err", err)
		return err
	}
	defer closeSession()
	if ctx.Err() != nil {
		return ctx.Err()
	}

	m := tui.NewModel(session, tuiOptions(env.cfg, env.logger.sessionLogger())...)
	env.logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		env.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	env.logger.Info("command flow complete", "command", "tui")
	return nil
}

// runServe runs the serve subcommand flow.
func runServe(ctx context.Context, env environment) error {
	session, closeSession, err := newSession(env.cfg, env.logger)
	if err != nil {
		return err
	}
	defer closeSession()

	env.logger.Info("command flow start", "command", "serve")
	err = serveCommandRunner(ctx, serveradapter.Config{
		HTTPBind:      env.cfg.Server.Bind,
		APIEndpoint:   env.cfg.Server.APIEndpoint,
		MCPEndpoint:   env.cfg.Server.MCPEndpoint,
		ServerName:    env.appName,
		ServerVersion: version,
	}, serveradapter.Dependencies{
		Board:  servercommon.NewSessionAdapter(session),
		Logger: env.logger.sessionLogger(),
	})
	if err != nil {
		env.logger.Error("command flow failed", "command", "serve", "err", err)
		return fmt.Errorf("run serve command: %w", err)
	}
	env.logger.Info("command flow complete", "command", "serve")
	return nil
}

// newSession builds the startup board and its change sinks from cfg.
func newSession(cfg config.Config, logger *runtimeLogger) (*app.Session, func(), error) {
	journal, err := sqlite.OpenInMemory()
	if err != nil {
		return nil, nil, fmt.Errorf("open activity journal: %w", err)
	}
	closers := []func() error{journal.Close}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("close failed", "err", err)
			}
		}
	}

	sinks := []app.ChangeSink{journal}
	if addr := strings.TrimSpace(cfg.Events.RedisAddr); addr != "" {
		publisher, err := redispub.New(redispub.Config{
			Addr:       addr,
			Channel:    cfg.Events.Channel,
			MaxRetries: cfg.Events.MaxRetries,
		})
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("configure change feed: %w", err)
		}
		sinks = append(sinks, publisher)
		closers = append(closers, publisher.Close)
		logger.Info("change feed enabled", "redis_addr", addr, "channel", publisher.Channel())
	}

	board, err := app.BuildBoard(columnSeeds(cfg), taskSeeds(cfg), uuid.NewString, time.Now())
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("build startup board: %w", err)
	}
	session, err := app.NewSession(board, uuid.NewString, time.Now, app.SessionConfig{
		DefaultColumnID: cfg.DefaultColumnID(),
		Sinks:           sinks,
		Reader:          journal,
		Logger:          logger.sessionLogger(),
	})
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("start session: %w", err)
	}
	logger.Debug("session initialized", "columns", len(board.ColumnIDs()), "tasks", board.TaskCount())
	return session, closeAll, nil
}

// columnSeeds maps configured columns onto board seeds.
func columnSeeds(cfg config.Config) []app.ColumnSeed {
	out := make([]app.ColumnSeed, 0, len(cfg.Board.Columns))
	for _, col := range cfg.Board.Columns {
		out = append(out, app.ColumnSeed{ID: col.ID, Name: col.Name})
	}
	return out
}

// taskSeeds maps configured seed cards onto board seeds. Config validation has already vetted priorities.
func taskSeeds(cfg config.Config) []app.TaskSeed {
	out := make([]app.TaskSeed, 0, len(cfg.Board.Seed))
	for _, seed := range cfg.Board.Seed {
		columnID := strings.TrimSpace(seed.Column)
		if columnID == "" {
			columnID = cfg.DefaultColumnID()
		}
		priority, _ := domain.ParsePriority(seed.Priority)
		out = append(out, app.TaskSeed{
			ID:          seed.ID,
			ColumnID:    columnID,
			Title:       seed.Title,
			Description: seed.Description,
			Priority:    priority,
		})
	}
	return out
}

// tuiOptions maps persisted config values into model options.
func tuiOptions(cfg config.Config, logger *charmLog.Logger) []tui.Option {
	return []tui.Option{
		tui.WithTaskFieldConfig(tui.TaskFieldConfig{
			ShowPriority:    cfg.TaskFields.ShowPriority,
			ShowDescription: cfg.TaskFields.ShowDescription,
		}),
		tui.WithKeyConfig(tui.KeyConfig{
			Grab:        cfg.Keys.Grab,
			Trash:       cfg.Keys.Trash,
			Copy:        cfg.Keys.Copy,
			ActivityLog: cfg.Keys.ActivityLog,
		}),
		tui.WithMarkdownCacheSize(cfg.UI.MarkdownCacheSize),
		tui.WithLogger(logger),
	}
}

// writeSnapshotJSON encodes snap as indented JSON.
func writeSnapshotJSON(w io.Writer, snap app.BoardSnapshot) error {
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot json: %w", err)
	}
	encoded = append(encoded, '\n')
	if _, err := w.Write(encoded); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// renderBoardTable lays the board out with one table column per board column.
func renderBoardTable(board domain.Board) string {
	columns := board.Columns()
	headers := make([]string, 0, len(columns))
	depth := 0
	for _, col := range columns {
		headers = append(headers, fmt.Sprintf("%s (%d)", col.Name, col.Len()))
		depth = max(depth, col.Len())
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for i := range depth {
		row := make([]string, 0, len(columns))
		for _, col := range columns {
			task, ok := col.At(i)
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, fmt.Sprintf("%s [%s]", task.Title, task.Priority))
		}
		t.Row(row...)
	}
	return t.String()
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// runtimeLogger fans log events to a styled console sink and an optional dev-file sink.
type runtimeLogger struct {
	sinks          []*charmLog.Logger
	consoleSink    *charmLog.Logger
	fileSink       *charmLog.Logger
	consoleEnabled bool
	closeFile      func() error
	devLog         string
}

// newRuntimeLogger configures runtime log sinks from CLI/config state.
func newRuntimeLogger(stderr io.Writer, appName string, devMode bool, cfg config.LoggingConfig, now func() time.Time) (*runtimeLogger, error) {
	level, err := charmLog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}

	if now == nil {
		now = time.Now
	}
	if stderr == nil {
		stderr = io.Discard
	}

	consoleLogger := charmLog.NewWithOptions(stderr, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.TextFormatter,
	})

	logger := &runtimeLogger{
		sinks:          []*charmLog.Logger{consoleLogger},
		consoleSink:    consoleLogger,
		consoleEnabled: true,
	}
	if !devMode || !cfg.DevFile.Enabled {
		return logger, nil
	}

	devLogPath, err := devLogFilePath(cfg.DevFile.Dir, appName, now().UTC())
	if err != nil {
		return nil, fmt.Errorf("resolve dev log file path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(devLogPath), 0o755); err != nil {
		return nil, fmt.Errorf("create dev log dir: %w", err)
	}
	logFile, err := os.OpenFile(devLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dev log file: %w", err)
	}

	// Keep file output parseable and unstyled while preserving styled console logs.
	fileLogger := charmLog.NewWithOptions(logFile, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.LogfmtFormatter,
	})
	logger.sinks = append(logger.sinks, fileLogger)
	logger.fileSink = fileLogger
	logger.closeFile = logFile.Close
	logger.devLog = devLogPath
	return logger, nil
}

// sessionLogger picks the single sink handed to the session and adapters.
// The dev file wins; a muted console yields a discarding logger.
func (l *runtimeLogger) sessionLogger() *charmLog.Logger {
	switch {
	case l == nil:
		return charmLog.New(io.Discard)
	case l.fileSink != nil:
		return l.fileSink
	case l.consoleEnabled:
		return l.consoleSink
	default:
		return charmLog.New(io.Discard)
	}
}

// DevLogPath returns the active dev log file path.
func (l *runtimeLogger) DevLogPath() string {
	if l == nil {
		return ""
	}
	return l.devLog
}

// Close closes the optional dev-file sink.
func (l *runtimeLogger) Close() error {
	if l == nil || l.closeFile == nil {
		return nil
	}
	return l.closeFile()
}

// SetConsoleEnabled toggles whether the console sink receives runtime events.
func (l *runtimeLogger) SetConsoleEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.consoleEnabled = enabled
}

// shouldLogToSink reports whether one sink should receive runtime output.
func (l *runtimeLogger) shouldLogToSink(sink *charmLog.Logger) bool {
	if l == nil || sink == nil {
		return false
	}
	if sink == l.consoleSink && !l.consoleEnabled {
		return false
	}
	return true
}

// Debug logs a debug event to all configured sinks.
func (l *runtimeLogger) Debug(msg string, keyvals ...any) {
	l.each(func(sink *charmLog.Logger) { sink.Debug(msg, keyvals...) })
}

// Info logs an informational event to all configured sinks.
func (l *runtimeLogger) Info(msg string, keyvals ...any) {
	l.each(func(sink *charmLog.Logger) { sink.Info(msg, keyvals...) })
}

// Warn logs a warning event to all configured sinks.
func (l *runtimeLogger) Warn(msg string, keyvals ...any) {
	l.each(func(sink *charmLog.Logger) { sink.Warn(msg, keyvals...) })
}

// Error logs an error event to all configured sinks.
func (l *runtimeLogger) Error(msg string, keyvals ...any) {
	l.each(func(sink *charmLog.Logger) { sink.Error(msg, keyvals...) })
}

func (l *runtimeLogger) each(fn func(*charmLog.Logger)) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if l.shouldLogToSink(sink) {
			fn(sink)
		}
	}
}

// devLogFilePath resolves a workspace-local dev log file path for the current run day.
func devLogFilePath(configDir, appName string, now time.Time) (string, error) {
	baseDir := strings.TrimSpace(configDir)
	if baseDir == "" {
		baseDir = ".taskflow/log"
	}
	if !filepath.IsAbs(baseDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working dir: %w", err)
		}
		baseDir = filepath.Join(workspaceRootFrom(cwd), baseDir)
	}
	fileStem := sanitizeLogFileStem(appName)
	fileName := fmt.Sprintf("%s-%s.log", fileStem, now.Format("20060102"))
	return filepath.Join(filepath.Clean(baseDir), fileName), nil
}

// workspaceRootFrom resolves the nearest ancestor workspace marker for stable local log placement.
func workspaceRootFrom(start string) string {
	start = filepath.Clean(strings.TrimSpace(start))
	if start == "" {
		return "."
	}
	dir := start
	for {
		if hasWorkspaceMarker(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// hasWorkspaceMarker reports whether a directory looks like a project workspace root.
func hasWorkspaceMarker(dir string) bool {
	for _, marker := range []string{"go.mod", ".git"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// sanitizeLogFileStem normalizes app names into safe file-name segments.
func sanitizeLogFileStem(appName string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-")
	stem := strings.Trim(replacer.Replace(strings.TrimSpace(appName)), "-")
	if stem == "" {
		return "taskflow"
	}
	return stem
}
