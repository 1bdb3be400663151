package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/taskflow/internal/domain"
	toml "github.com/pelletier/go-toml/v2"
)

// ReservedColumnID is the drop-zone id no configured column may use.
const ReservedColumnID = "trash"

type Config struct {
	Board      BoardConfig      `toml:"board"`
	TaskFields TaskFieldsConfig `toml:"task_fields"`
	Logging    LoggingConfig    `toml:"logging"`
	Server     ServerConfig     `toml:"server"`
	Events     EventsConfig     `toml:"events"`
	UI         UIConfig         `toml:"ui"`
	Keys       KeyConfig        `toml:"keys"`
}

type BoardConfig struct {
	Columns       []ColumnConfig   `toml:"columns"`
	DefaultColumn string           `toml:"default_column"`
	Seed          []SeedTaskConfig `toml:"seed"`
}

type ColumnConfig struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

// SeedTaskConfig describes one card present when a session starts.
type SeedTaskConfig struct {
	ID          string `toml:"id"`
	Column      string `toml:"column"`
	Title       string `toml:"title"`
	Description string `toml:"description"`
	Priority    string `toml:"priority"`
}

type TaskFieldsConfig struct {
	ShowPriority    bool `toml:"show_priority"`
	ShowDescription bool `toml:"show_description"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type ServerConfig struct {
	Bind        string `toml:"bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

// EventsConfig configures the optional redis change feed. An empty
// RedisAddr disables it.
type EventsConfig struct {
	RedisAddr  string `toml:"redis_addr"`
	Channel    string `toml:"channel"`
	MaxRetries int    `toml:"max_retries"`
}

type UIConfig struct {
	MarkdownCacheSize int `toml:"markdown_cache_size"`
}

type KeyConfig struct {
	Grab        string `toml:"grab"`
	Trash       string `toml:"trash"`
	Copy        string `toml:"copy"`
	ActivityLog string `toml:"activity_log"`
}

func defaultColumns() []ColumnConfig {
	return []ColumnConfig{
		{ID: "todo", Name: "To Do"},
		{ID: "doing", Name: "In Progress"},
		{ID: "done", Name: "Done"},
	}
}

func defaultSeed() []SeedTaskConfig {
	return []SeedTaskConfig{
		{ID: "1", Column: "todo", Title: "Assignment 1", Description: "due date - 1aug"},
		{ID: "2", Column: "todo", Title: "Assignment 2", Description: "due date - 5aug"},
	}
}

func Default() Config {
	return Config{
		Board: BoardConfig{
			Columns:       defaultColumns(),
			DefaultColumn: "todo",
			Seed:          defaultSeed(),
		},
		TaskFields: TaskFieldsConfig{
			ShowPriority:    true,
			ShowDescription: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".taskflow/log",
			},
		},
		Server: ServerConfig{
			Bind:        "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Events: EventsConfig{
			Channel:    "taskflow.changes",
			MaxRetries: 3,
		},
		UI: UIConfig{
			MarkdownCacheSize: 128,
		},
		Keys: KeyConfig{
			Grab:        " ",
			Trash:       "t",
			Copy:        "y",
			ActivityLog: "g",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	// Default seed cards and default column only make sense on the default columns.
	seed, defCol := cfg.Board.Seed, cfg.Board.DefaultColumn
	cfg.Board.Columns = slices.Clone(defaults.Board.Columns)
	cfg.Board.Seed = nil
	cfg.Board.DefaultColumn = ""
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	if slices.Equal(cfg.Board.Columns, defaults.Board.Columns) {
		if cfg.Board.Seed == nil {
			cfg.Board.Seed = seed
		}
		if strings.TrimSpace(cfg.Board.DefaultColumn) == "" {
			cfg.Board.DefaultColumn = defCol
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := charmLog.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if len(c.Board.Columns) == 0 {
		return errors.New("board.columns must include at least one column")
	}
	seenID := map[string]struct{}{}
	seenName := map[string]struct{}{}
	for idx, col := range c.Board.Columns {
		id := strings.TrimSpace(col.ID)
		name := strings.TrimSpace(col.Name)
		if id == "" {
			return fmt.Errorf("board.columns[%d].id is required", idx)
		}
		if name == "" {
			return fmt.Errorf("board.columns[%d].name is required", idx)
		}
		if strings.EqualFold(id, ReservedColumnID) {
			return fmt.Errorf("board.columns[%d].id %q is reserved for the trash zone", idx, id)
		}
		if _, ok := seenID[id]; ok {
			return fmt.Errorf("board.columns[%d].id is duplicated: %s", idx, id)
		}
		if _, ok := seenName[strings.ToLower(name)]; ok {
			return fmt.Errorf("board.columns[%d].name is duplicated: %s", idx, name)
		}
		seenID[id] = struct{}{}
		seenName[strings.ToLower(name)] = struct{}{}
	}
	if def := strings.TrimSpace(c.Board.DefaultColumn); def != "" {
		if _, ok := seenID[def]; !ok {
			return fmt.Errorf("board.default_column references unknown column %q", def)
		}
	}

	seenSeed := map[string]struct{}{}
	for idx, seed := range c.Board.Seed {
		if strings.TrimSpace(seed.Title) == "" {
			return fmt.Errorf("board.seed[%d].title is required", idx)
		}
		if col := strings.TrimSpace(seed.Column); col != "" {
			if _, ok := seenID[col]; !ok {
				return fmt.Errorf("board.seed[%d] references unknown column %q", idx, col)
			}
		}
		if strings.TrimSpace(seed.Priority) != "" {
			if _, err := domain.ParsePriority(seed.Priority); err != nil {
				return fmt.Errorf("board.seed[%d].priority: %w", idx, err)
			}
		}
		if id := strings.TrimSpace(seed.ID); id != "" {
			if _, ok := seenSeed[id]; ok {
				return fmt.Errorf("board.seed[%d].id is duplicated: %s", idx, id)
			}
			seenSeed[id] = struct{}{}
		}
	}

	if c.Events.MaxRetries < 0 {
		return errors.New("events.max_retries must be >= 0")
	}
	if c.UI.MarkdownCacheSize < 0 {
		return errors.New("ui.markdown_cache_size must be >= 0")
	}
	return nil
}

// DefaultColumnID returns the configured default column or the first one.
func (c Config) DefaultColumnID() string {
	if def := strings.TrimSpace(c.Board.DefaultColumn); def != "" {
		return def
	}
	if len(c.Board.Columns) == 0 {
		return ""
	}
	return strings.TrimSpace(c.Board.Columns[0].ID)
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// ErrConfigExists reports that WriteDefault refused to overwrite a file.
var ErrConfigExists = errors.New("config file already exists")

// WriteDefault writes Default() as TOML to path. An existing file is kept unless force is set.
func WriteDefault(path string, force bool) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is required")
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}
	encoded, err := toml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
