package config

import (
	"fmt"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/powermap/logger"
)

// FileSystem is the file access the loader needs. Tests swap in a fake.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem reads the local disk.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadEnv loads a .env file into the process environment without
// overriding variables that are already set.
func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver finds the config.yml and .env files of a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles holds the files LoadConfig will read. Empty means none.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles keeps explicit paths from opts and searches for the rest.
func (cr *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = cr.first(configSearchPaths(serviceName))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = cr.first(envSearchPaths(serviceName))
	}
	return resolved
}

func (cr *Resolver) first(candidates []string) string {
	for _, p := range candidates {
		if cr.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

// searchRoots are the working directory and its two parents, so the loader
// finds files both from the repository root and from a package directory
// under test.
var searchRoots = []string{".", "..", "../.."}

// configSearchPaths lists config.yml candidates, nearest first: the
// service's cmd directory, then a shared config directory, then the root.
func configSearchPaths(serviceName string) []string {
	var paths []string
	for _, root := range searchRoots {
		paths = append(paths, path.Join(root, "cmd", serviceName, "config.yml"))
	}
	for _, root := range searchRoots[:2] {
		paths = append(paths, path.Join(root, "config", "config.yml"))
	}
	return append(paths, "config.yml")
}

// envSearchPaths lists .env candidates. A service-specific .env.<name>
// anywhere wins over a plain .env.
func envSearchPaths(serviceName string) []string {
	var paths []string
	for _, name := range []string{".env." + serviceName, ".env"} {
		for _, dir := range envSearchDirs(serviceName) {
			paths = append(paths, path.Join(dir, name))
		}
	}
	return paths
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct env file path (optional)
	EnvPrefix  string // Only bind variables starting with PREFIX_, prefix removed (optional)
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix limits environment binding to variables named PREFIX_*.
// The prefix is removed before the key is matched, so with prefix
// "powermap" POWERMAP_DRAIN_CONCURRENCY sets drain.concurrency.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// LoadConfig loads configuration for a service into cfg. Values are
// layered, later wins: config.yml, then .env, then the process environment.
//
// An explicit config file (WithConfigFile) must exist and parse. A
// discovered one that fails to parse is an error too. Missing .env files
// are ignored.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}
	if lc.ConfigFile != "" && !lc.FileSystem.Exists(lc.ConfigFile) {
		return fmt.Errorf("config file %s not found", lc.ConfigFile)
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(serviceName, lc)

	v, err := newViper(files, lc)
	if err != nil {
		return err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}
	return nil
}

func newViper(files ResolvedFiles, lc LoaderConfig) (*viper.Viper, error) {
	v := viper.New()
	log := logger.WithComponent("config")

	if files.ConfigFile != "" {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", files.ConfigFile, err)
		}
		log.Debug("config file loaded", logger.Fields("path", files.ConfigFile))
	}

	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			log.Warn("failed to load .env file", logger.Fields("path", files.EnvFile, logger.FieldError, err.Error()))
		} else {
			log.Debug(".env file loaded", logger.Fields("path", files.EnvFile))
		}
	}

	if lc.EnvPrefix != "" {
		v.SetEnvPrefix(lc.EnvPrefix)
	}
	v.AutomaticEnv()
	autoBindEnvVars(v, lc.EnvPrefix)
	return v, nil
}

// envSearchDirs lists the directories searched for .env files, nearest
// first.
func envSearchDirs(serviceName string) []string {
	var dirs []string
	for _, sub := range []string{path.Join("cmd", serviceName), path.Join("config", serviceName), "config", ""} {
		for _, root := range searchRoots {
			dirs = append(dirs, path.Join(root, sub))
		}
	}
	return dirs
}

// autoBindEnvVars sets every environment variable on v under each key it
// could stand for. With a prefix, only PREFIX_* variables are bound and the
// prefix is dropped.
func autoBindEnvVars(v *viper.Viper, prefix string) {
	prefix = strings.ToUpper(prefix)
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if prefix != "" {
			if key, ok = strings.CutPrefix(key, prefix+"_"); !ok || key == "" {
				continue
			}
		}
		for _, variant := range generateEnvKeyVariants(key) {
			v.Set(variant, value)
		}
	}
}

// generateEnvKeyVariants maps an environment key to the config keys it may
// name. Underscores are ambiguous: they separate sections and also appear
// inside key names, so every split point is tried.
//
//	DRAIN_CONCURRENCY    -> drain_concurrency, drain.concurrency
//	TELEMETRY_SAMPLE_RATE -> telemetry_sample_rate, telemetry.sample.rate,
//	                         telemetry.sample_rate
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")
	variants := []string{lowerKey}
	if len(parts) == 1 {
		return variants
	}

	add := func(k string) {
		if !slices.Contains(variants, k) {
			variants = append(variants, k)
		}
	}
	add(strings.Join(parts, "."))
	for i := 1; i < len(parts); i++ {
		add(strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "_"))
	}
	return variants
}
