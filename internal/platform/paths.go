package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// defaultAppName names the per-user directories when no override is given.
const defaultAppName = "taskflow"

// configFileName is the TOML file inside the app config dir.
const configFileName = "config.toml"

var (
	ErrEmptyBaseDir = errors.New("empty base dirs")
	ErrEmptyAppName = errors.New("empty app name")
)

// Paths holds the resolved per-user locations for one app name.
type Paths struct {
	AppName    string
	ConfigPath string
	DataDir    string
}

// ConfigDir returns the directory holding ConfigPath.
func (p Paths) ConfigDir() string {
	return filepath.Dir(p.ConfigPath)
}

// Options selects the app name and whether dev-mode directories are used.
type Options struct {
	AppName string
	DevMode bool
}

// dirOverride names the env vars that replace the OS config/data bases.
type dirOverride struct {
	config string
	data   string
}

// overrides lists per-OS env overrides; macOS keeps the user dirs.
var overrides = map[string]dirOverride{
	"linux":   {config: "XDG_CONFIG_HOME", data: "XDG_DATA_HOME"},
	"windows": {config: "APPDATA", data: "LOCALAPPDATA"},
}

// DefaultPaths returns the production paths for taskflow.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{})
}

// ResolveAppName applies the default and the dev suffix.
func ResolveAppName(opts Options) string {
	appName := strings.TrimSpace(opts.AppName)
	if appName == "" {
		appName = defaultAppName
	}
	if opts.DevMode {
		appName += "-dev"
	}
	return appName
}

// DefaultPathsWithOptions resolves paths for the running OS.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataDir, err := userDataDir(runtime.GOOS, configDir)
	if err != nil {
		return Paths{}, err
	}

	env := make(map[string]string, 4)
	for _, o := range overrides {
		env[o.config] = os.Getenv(o.config)
		env[o.data] = os.Getenv(o.data)
	}
	return PathsFor(runtime.GOOS, env, configDir, dataDir, ResolveAppName(opts))
}

// userDataDir picks the OS base for app data before env overrides.
func userDataDir(goos, configDir string) (string, error) {
	switch goos {
	case "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("user home dir: %w", err)
		}
		return filepath.Join(home, ".local", "share"), nil
	case "windows":
		if v := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); v != "" {
			return v, nil
		}
	}
	return configDir, nil
}

// PathsFor resolves config and data locations for one OS and environment.
func PathsFor(goos string, env map[string]string, userConfigDir, userDataDir, appName string) (Paths, error) {
	if userConfigDir == "" || userDataDir == "" {
		return Paths{}, ErrEmptyBaseDir
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, ErrEmptyAppName
	}

	configBase, dataBase := userConfigDir, userDataDir
	if o, ok := overrides[goos]; ok {
		if v := strings.TrimSpace(env[o.config]); v != "" {
			configBase = v
		}
		if v := strings.TrimSpace(env[o.data]); v != "" {
			dataBase = v
		}
	}

	return Paths{
		AppName:    appName,
		ConfigPath: filepath.Join(configBase, appName, configFileName),
		DataDir:    filepath.Join(dataBase, appName),
	}, nil
}
