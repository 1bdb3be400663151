package tui

import (
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
)

type TaskFieldConfig struct {
	ShowPriority    bool
	ShowDescription bool
}

// KeyConfig holds user key overrides; blank fields keep the defaults.
type KeyConfig struct {
	Grab        string
	Trash       string
	Copy        string
	ActivityLog string
}

type Option func(*Model)

func DefaultTaskFieldConfig() TaskFieldConfig {
	return TaskFieldConfig{
		ShowPriority:    true,
		ShowDescription: true,
	}
}

func WithTaskFieldConfig(cfg TaskFieldConfig) Option {
	return func(m *Model) {
		m.taskFields = cfg
	}
}

func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.clipboard = write
		}
	}
}

func WithMarkdownCacheSize(size int) Option {
	return func(m *Model) {
		m.markdown = newMarkdownRenderer(size)
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// systemClipboard writes to the OS clipboard.
func systemClipboard(text string) error {
	return clipboard.WriteAll(text)
}
