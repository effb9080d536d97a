package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reform/cmd/reform/docyaml"
	"reform/pkg/driver"
	"reform/pkg/form"
	"reform/pkg/lib"

	"gopkg.in/yaml.v3"
)

// appName is the single source of truth for the application name.
// All derived identifiers (env vars, config paths, error messages) are computed from it.
const appName = "reform"

// Derived env var names, computed once at init from appName.
var (
	envConfigDir = strings.ToUpper(appName) + "_CONFIG_DIR"
	envDocuments = strings.ToUpper(appName) + "_DOCUMENTS"
)

const settingsFile = "config.yml"

// settings is the content of <config>/config.yml. Zero values keep the
// library defaults.
type settings struct {
	MaxDepth   int       `yaml:"max_depth,omitempty"`
	ErrorLimit int       `yaml:"error_limit,omitempty"`
	Samples    int       `yaml:"samples,omitempty"`
	Trace      bool      `yaml:"trace,omitempty"`
	Canvas     []float64 `yaml:"canvas,omitempty,flow"`
}

// canvas returns the configured canvas, or zero when unset or malformed.
func (s settings) canvas() form.Vec2 {
	if len(s.Canvas) != 2 {
		return form.Vec2{}
	}
	return form.Vec2{X: s.Canvas[0], Y: s.Canvas[1]}
}

// resolveConfigDir returns the base config directory for the application.
// Priority: $<APPNAME>_CONFIG_DIR > $XDG_CONFIG_HOME/<appName> > ~/.config/<appName>
func resolveConfigDir() (string, error) {
	if v := os.Getenv(envConfigDir); v != "" {
		return v, nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// loadSettings reads configDir/config.yml. A missing file yields defaults.
func loadSettings(configDir string) (settings, error) {
	var s settings
	path := filepath.Join(configDir, settingsFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("settings file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("phase=parse path=%s: %w", path, err)
	}
	if s.MaxDepth < 0 || s.ErrorLimit < 0 || s.Samples < 0 {
		return s, fmt.Errorf("phase=parse path=%s: max_depth, error_limit and samples must not be negative", path)
	}
	return s, nil
}

// resolveDocumentFiles returns all document files the CLI knows about.
// Order: configDir/documents/*.yml → $<APPNAME>_DOCUMENTS → flagFiles
// Missing directories are silently skipped; explicitly provided paths are kept as-is
// (errors will surface at read time with a clear message).
func resolveDocumentFiles(configDir string, flagFiles []string) ([]string, error) {
	files, err := globYAML(filepath.Join(configDir, "documents"))
	if err != nil {
		return nil, err
	}
	files = append(files, splitColon(os.Getenv(envDocuments))...)
	files = append(files, flagFiles...)
	return files, nil
}

// globYAML returns sorted *.yml / *.yaml files in dir.
// Returns nil without error if dir does not exist.
func globYAML(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	return files, nil
}

// splitColon splits a colon-separated string, filtering empty parts.
func splitColon(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ":")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// documentName is the name a document file is addressed by on the command line.
func documentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(strings.TrimSuffix(base, ".yml"), ".yaml")
}

// env is everything a command needs from the environment.
type env struct {
	configDir string
	settings  settings
	documents []string
}

func loadEnv() (*env, error) {
	dir, err := resolveConfigDir()
	if err != nil {
		return nil, err
	}
	s, err := loadSettings(dir)
	if err != nil {
		return nil, err
	}
	docs, err := resolveDocumentFiles(dir, flagFiles)
	if err != nil {
		return nil, err
	}
	return &env{configDir: dir, settings: s, documents: docs}, nil
}

// find resolves arg to a document file: an existing path, or the name of a
// known document.
func (e *env) find(arg string) (string, error) {
	if st, err := os.Stat(arg); err == nil && !st.IsDir() {
		return arg, nil
	}
	var names []string
	for _, f := range e.documents {
		if documentName(f) == arg {
			return f, nil
		}
		names = append(names, documentName(f))
	}
	if len(names) == 0 {
		return "", lib.WithHint(
			fmt.Errorf("document %q not found: no documents known", arg),
			fmt.Sprintf("run `%s config init`, add *.yml files to %s, set $%s, or use --file",
				appName, filepath.Join(e.configDir, "documents"), envDocuments),
		)
	}
	return "", fmt.Errorf("document %q not found\navailable: %s", arg, strings.Join(names, ", "))
}

// load reads and builds a document with the configured limits.
func (e *env) load(path string) (*docyaml.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("document file %s: %w", path, err)
	}
	doc, err := docyaml.ParseWith(data, docyaml.Options{MaxDepth: e.settings.MaxDepth})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Canvas.IsZero() {
		doc.Canvas = e.settings.canvas()
	}
	return doc, nil
}

// driverOptions turns the settings into driver options.
func (e *env) driverOptions(doc *docyaml.Document) driver.Options {
	return driver.Options{
		Canvas:     doc.Canvas,
		ErrorLimit: e.settings.ErrorLimit,
		Samples:    e.settings.Samples,
	}
}

// openDocument resolves and loads the document named by arg.
func openDocument(arg string) (*env, *docyaml.Document, error) {
	e, err := loadEnv()
	if err != nil {
		return nil, nil, err
	}
	path, err := e.find(arg)
	if err != nil {
		return nil, nil, err
	}
	doc, err := e.load(path)
	if err != nil {
		return nil, nil, err
	}
	return e, doc, nil
}
