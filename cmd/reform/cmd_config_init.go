package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

//go:embed cmd_config_init_settings.yml
var initSettingsYAML []byte

//go:embed cmd_config_init_example.yml
var initExampleYAML []byte

const configInitSettingsHeader = "# " + appName + " settings\n" +
	"# ─────────────────────────────────────────────────────────────────────────────\n" +
	"# Unset keys keep their defaults. Inspect the result with `" + appName + " config show`.\n" +
	"# ─────────────────────────────────────────────────────────────────────────────\n\n"

const configInitExampleHeader = "# " + appName + " example document\n" +
	"# ─────────────────────────────────────────────────────────────────────────────\n" +
	"# sheet:        named expressions, arrays as [a, b, c]\n" +
	"# forms:        name: line | rectangle | circle\n" +
	"# instructions: create, translate, rotate, scale, morph\n" +
	"#               grouped by sequence, repeat, if and each\n" +
	"# Run it with:  " + appName + " run example\n" +
	"# ─────────────────────────────────────────────────────────────────────────────\n\n"

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialise the " + appName + " config directory with starter files",
	Long: "Create the " + appName + " config directory and populate it with a\n" +
		"settings file and an example document.\n\n" +
		"Files created:\n" +
		"  <config>/config.yml              settings\n" +
		"  <config>/documents/example.yml   example document\n\n" +
		"The default config directory follows the same priority as the main command:\n" +
		"  $REFORM_CONFIG_DIR > $XDG_CONFIG_HOME/reform > ~/.config/reform",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		dir, _ := cmd.Flags().GetString("dir")

		if dir == "" {
			var err error
			dir, err = resolveConfigDir()
			if err != nil {
				return err
			}
		}

		docsDir := filepath.Join(dir, "documents")
		if err := os.MkdirAll(docsDir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", docsDir, err)
		}

		settingsPath := filepath.Join(dir, settingsFile)
		examplePath := filepath.Join(docsDir, "example.yml")

		if err := writeInitFile(settingsPath, configInitSettingsHeader, initSettingsYAML, force); err != nil {
			return err
		}
		if err := writeInitFile(examplePath, configInitExampleHeader, initExampleYAML, force); err != nil {
			return err
		}

		stderr := cmd.ErrOrStderr()
		fmt.Fprintf(stderr, "initialised %s\n", dir)
		fmt.Fprintf(stderr, "  %s\n", settingsPath)
		fmt.Fprintf(stderr, "  %s\n", examplePath)
		fmt.Fprintf(stderr, "\nRun `%s list` to see available documents.\n", appName)
		return nil
	},
}

func writeInitFile(path, header string, content []byte, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if header != "" {
		fmt.Fprint(f, header)
	}
	_, err = f.Write(content)
	return err
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite existing files")
	configInitCmd.Flags().String("dir", "", "target config directory (default: auto-resolved)")
}
