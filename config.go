package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	flag "github.com/spf13/pflag"
)

// =============================================================================
// Configuration
// =============================================================================

const (
	appName = "photo-grouper"

	// envPrefix prefixes every environment override, e.g. PHOTO_GROUPER_OUTDIR.
	envPrefix = "PHOTO_GROUPER_"

	defaultHistoryName = "." + appName + "_history.log"
)

// Config holds all runtime settings. Values are layered in this order, later
// layers winning: DefaultConfig, config.toml, environment, command-line flags.
type Config struct {
	InputDir       string `toml:"input_dir"`
	OutputDir      string `toml:"output_dir"`
	UnsortedDir    string `toml:"unsorted_dir"` // Default: <OutputDir>/unsorted.
	Postfix        string `toml:"postfix"`
	Workers        int    `toml:"workers"`
	Exif           bool   `toml:"exif"`
	AllFiles       bool   `toml:"all_files"`
	UpdateManifest bool   `toml:"update_manifest"`
	HistoryFile    string `toml:"history_file"` // Default: <OutputDir>/.photo-grouper_history.log.
	Verbose        bool   `toml:"verbose"`

	// Command-line only.
	DryRun      bool     `toml:"-"`
	DateSpec    string   `toml:"-"`
	ConfigFile  string   `toml:"-"`
	Init        bool     `toml:"-"`
	ShowVersion bool     `toml:"-"`
	Args        []string `toml:"-"` // raw command line, recorded in the history log

	// Set by finalize when the path was derived from OutputDir.
	derivedUnsorted bool
	derivedHistory  bool
}

// ConfigError wraps any problem with flags, environment or config file.
// main exits with the usage exit code for these.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "config: " + e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		InputDir:  "./Camera",
		OutputDir: "./photos",
		Postfix:   "n9",
		Workers:   1,
	}
}

// ConfigPath returns the config file path:
//
//	$XDG_CONFIG_HOME/photo-grouper/config.toml
//
// or
//
//	~/.config/photo-grouper/config.toml
func ConfigPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName, "config.toml"), nil
}

// LoadConfigFile overlays the TOML file at path onto cfg. A missing file is
// not an error; a malformed one is.
func LoadConfigFile(fs afero.Fs, path string, cfg *Config) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// WriteConfigFile writes cfg as TOML to path, creating parent folders.
func WriteConfigFile(fs afero.Fs, path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0o644)
}

// persistable returns cfg with derived paths cleared, so a written config
// keeps following OutputDir.
func (c Config) persistable() Config {
	if c.derivedUnsorted {
		c.UnsortedDir = ""
	}
	if c.derivedHistory {
		c.HistoryFile = ""
	}
	return c
}

// ApplyEnv overlays PHOTO_GROUPER_* variables onto cfg. getenv is normally
// os.Getenv (after godotenv has loaded any .env file).
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(envPrefix + name)); v != "" {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) error {
		v := strings.TrimSpace(getenv(envPrefix + name))
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = b
		return nil
	}

	str("INPUTDIR", &cfg.InputDir)
	str("OUTDIR", &cfg.OutputDir)
	str("UNSORTED", &cfg.UnsortedDir)
	str("POSTFIX", &cfg.Postfix)
	str("HISTORY", &cfg.HistoryFile)

	if v := strings.TrimSpace(getenv(envPrefix + "WORKERS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sWORKERS: %w", envPrefix, err)
		}
		cfg.Workers = n
	}
	if err := boolean("EXIF", &cfg.Exif); err != nil {
		return err
	}
	if err := boolean("ALL_FILES", &cfg.AllFiles); err != nil {
		return err
	}
	return boolean("VERBOSE", &cfg.Verbose)
}

// LoadConfig builds the effective Config from args, the environment and the
// config file.
func LoadConfig(fs afero.Fs, args []string, getenv func(string) string, errOut io.Writer) (Config, error) {
	var cli Config
	set := newFlagSet(&cli, errOut)
	if err := set.Parse(args); err != nil {
		return Config{}, &ConfigError{Err: err}
	}
	if set.NArg() > 1 {
		return Config{}, &ConfigError{Err: fmt.Errorf("expected at most one datespec, got %d arguments", set.NArg())}
	}

	cfg := DefaultConfig()

	path := cli.ConfigFile
	if path == "" {
		path = getenv(envPrefix + "CONFIG")
	}
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return Config{}, &ConfigError{Err: err}
		}
		path = p
	}
	path, err := ExpandUser(path)
	if err != nil {
		return Config{}, &ConfigError{Err: err}
	}
	cfg.ConfigFile = path

	// --init writes the config file rather than reading it.
	if !cli.Init {
		if err := LoadConfigFile(fs, path, &cfg); err != nil {
			return Config{}, &ConfigError{Err: err}
		}
	}
	if err := ApplyEnv(&cfg, getenv); err != nil {
		return Config{}, &ConfigError{Err: err}
	}

	overlayFlags(set, &cli, &cfg)
	cfg.DateSpec = set.Arg(0)
	cfg.Args = args

	if err := cfg.finalize(); err != nil {
		return Config{}, &ConfigError{Err: err}
	}
	return cfg, nil
}

func newFlagSet(c *Config, errOut io.Writer) *flag.FlagSet {
	set := flag.NewFlagSet(appName, flag.ContinueOnError)
	set.SetOutput(errOut)

	set.StringVarP(&c.InputDir, "inputdir", "i", "", `folder where the source files are (default "./Camera")`)
	set.StringVarP(&c.OutputDir, "outdir", "o", "", `folder where the main photo collection lives (default "./photos")`)
	set.StringVarP(&c.UnsortedDir, "unsorted", "u", "", "folder for files that couldn't be grouped by date (default <outdir>/unsorted)")
	set.StringVarP(&c.Postfix, "postfix", "p", "", `postfix used when the date folder already exists (default "n9")`)
	set.BoolVarP(&c.DryRun, "dry-run", "d", false, "don't create folders or copy files, only show what would happen")
	set.BoolVarP(&c.Verbose, "verbose", "v", false, "verbose output")
	set.IntVarP(&c.Workers, "workers", "w", 0, "number of files copied concurrently (default 1)")
	set.BoolVar(&c.Exif, "exif", false, "fall back to EXIF DateTimeOriginal for photos without a dated filename")
	set.BoolVar(&c.AllFiles, "all-files", false, "process every file, not only photos and videos")
	set.BoolVarP(&c.UpdateManifest, "update-manifest", "m", false, "update the manifest CSV after copying")
	set.StringVar(&c.HistoryFile, "history", "", "processing history log (default <outdir>/"+defaultHistoryName+")")
	set.StringVar(&c.ConfigFile, "config", "", "config file (default $XDG_CONFIG_HOME/"+appName+"/config.toml)")
	set.BoolVar(&c.Init, "init", false, "create the output folders and a default config file")
	set.BoolVar(&c.ShowVersion, "version", false, "print version and exit")

	set.Usage = func() {
		fmt.Fprintf(errOut, "Copy photos from a phone's DCIM/Camera export into the collection, grouped by date\n\n")
		fmt.Fprintf(errOut, "Usage:\n  %s [options] [datespec]\n\n", appName)
		fmt.Fprintf(errOut, "datespec:\n%s\n\n", dateSpecHelp)
		fmt.Fprintf(errOut, "Options:\n%s", set.FlagUsages())
	}
	return set
}

// overlayFlags copies explicitly set flags from cli onto cfg.
func overlayFlags(set *flag.FlagSet, cli, cfg *Config) {
	if set.Changed("inputdir") {
		cfg.InputDir = cli.InputDir
	}
	if set.Changed("outdir") {
		cfg.OutputDir = cli.OutputDir
	}
	if set.Changed("unsorted") {
		cfg.UnsortedDir = cli.UnsortedDir
	}
	if set.Changed("postfix") {
		cfg.Postfix = cli.Postfix
	}
	if set.Changed("verbose") {
		cfg.Verbose = cli.Verbose
	}
	if set.Changed("workers") {
		cfg.Workers = cli.Workers
	}
	if set.Changed("exif") {
		cfg.Exif = cli.Exif
	}
	if set.Changed("all-files") {
		cfg.AllFiles = cli.AllFiles
	}
	if set.Changed("update-manifest") {
		cfg.UpdateManifest = cli.UpdateManifest
	}
	if set.Changed("history") {
		cfg.HistoryFile = cli.HistoryFile
	}
	cfg.DryRun = cli.DryRun
	cfg.Init = cli.Init
	cfg.ShowVersion = cli.ShowVersion
}

// finalize expands paths, fills derived defaults and validates.
func (c *Config) finalize() error {
	var err error
	for _, p := range []*string{&c.InputDir, &c.OutputDir, &c.UnsortedDir, &c.HistoryFile} {
		if *p, err = ExpandUser(*p); err != nil {
			return err
		}
	}

	if c.UnsortedDir == "" {
		c.UnsortedDir = filepath.Join(c.OutputDir, "unsorted")
		c.derivedUnsorted = true
	}
	if c.HistoryFile == "" {
		c.HistoryFile = filepath.Join(c.OutputDir, defaultHistoryName)
		c.derivedHistory = true
	}

	if c.InputDir == "" {
		return errors.New("input directory must not be empty")
	}
	if c.OutputDir == "" {
		return errors.New("output directory must not be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if strings.ContainsAny(c.Postfix, `/\`) {
		return fmt.Errorf("postfix %q must not contain path separators", c.Postfix)
	}
	if _, err := ParseDateSpec(c.DateSpec); err != nil {
		return err
	}
	return nil
}

// ExpandUser expands a leading "~/" to the user home directory.
// If the path doesn't start with "~", it returns it unchanged.
func ExpandUser(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if p == "~" {
		return home, nil
	}
	return filepath.Join(home, p[2:]), nil
}
