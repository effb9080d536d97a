package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"reform/cmd/reform/docyaml"
	"reform/pkg/form"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	flagNewKind  string
	flagNewForm  string
	flagNewForce bool
)

var newCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a starter document in the documents directory",
	Long: "Create a starter document holding one form, a two line sheet and an\n" +
		"instruction that moves the form by a sheet value.\n\n" +
		"Missing answers are asked for interactively.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		ans := newAnswers{Kind: flagNewKind, Form: flagNewForm, Canvas: e.settings.canvas()}
		if len(args) == 1 {
			ans.Name = args[0]
		}
		if ans.Canvas.IsZero() {
			ans.Canvas.X, ans.Canvas.Y = 200, 100
		}
		if ans.Name == "" || ans.Kind == "" || ans.Form == "" {
			if err := askNewAnswers(&ans); err != nil {
				return err
			}
		}
		data, err := newDocumentYAML(ans)
		if err != nil {
			return err
		}
		dir := filepath.Join(e.configDir, "documents")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
		path := filepath.Join(dir, ans.Name+".yml")
		if err := writeInitFile(path, "", data, flagNewForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "created %s\n\nRun `%s run %s` to evaluate it.\n", path, appName, ans.Name)
		return nil
	},
}

func init() {
	newCmd.Flags().StringVar(&flagNewKind, "kind", "", "form type: line, rectangle or circle")
	newCmd.Flags().StringVar(&flagNewForm, "form", "", "form name")
	newCmd.Flags().BoolVar(&flagNewForce, "force", false, "overwrite an existing document")
}

// newAnswers holds the answers needed to write a starter document.
type newAnswers struct {
	Name   string
	Kind   string
	Form   string
	Canvas form.Vec2
}

func validateName(s string) error {
	switch {
	case s == "":
		return errors.New("must not be empty")
	case strings.ContainsAny(s, `/\. `):
		return errors.New("must not contain dots, spaces or slashes")
	}
	return nil
}

func validateSize(s string) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return errors.New("must be a positive number")
	}
	return nil
}

func askNewAnswers(ans *newAnswers) error {
	width := strconv.FormatFloat(ans.Canvas.X, 'g', -1, 64)
	height := strconv.FormatFloat(ans.Canvas.Y, 'g', -1, 64)
	if ans.Kind == "" {
		ans.Kind = "rectangle"
	}
	if ans.Form == "" {
		ans.Form = "box"
	}
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Document name").Value(&ans.Name).Validate(validateName),
			huh.NewInput().Title("Canvas width").Value(&width).Validate(validateSize),
			huh.NewInput().Title("Canvas height").Value(&height).Validate(validateSize),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("First form").
				Options(huh.NewOptions("line", "rectangle", "circle")...).
				Value(&ans.Kind),
			huh.NewInput().Title("Form name").Value(&ans.Form).Validate(validateName),
		),
	).Run()
	if err != nil {
		return err
	}
	ans.Canvas.X, _ = strconv.ParseFloat(width, 64)
	ans.Canvas.Y, _ = strconv.ParseFloat(height, 64)
	return nil
}

type starterDocument struct {
	Canvas       []float64            `yaml:"canvas,flow"`
	Sheet        map[string]string    `yaml:"sheet"`
	Forms        map[string]string    `yaml:"forms"`
	Instructions []starterInstruction `yaml:"instructions"`
}

type starterInstruction struct {
	Create    string    `yaml:"create,omitempty"`
	Translate string    `yaml:"translate,omitempty"`
	At        []float64 `yaml:"at,omitempty,flow"`
	Size      []float64 `yaml:"size,omitempty,flow"`
	Centered  bool      `yaml:"centered,omitempty"`
	From      []float64 `yaml:"from,omitempty,flow"`
	To        []float64 `yaml:"to,omitempty,flow"`
	By        []string  `yaml:"by,omitempty,flow"`
}

// newDocumentYAML renders a starter document: the form is created in the
// middle of the canvas and moved right by the sheet value "step".
func newDocumentYAML(ans newAnswers) ([]byte, error) {
	if err := validateName(ans.Name); err != nil {
		return nil, fmt.Errorf("document name %q: %w", ans.Name, err)
	}
	if err := validateName(ans.Form); err != nil {
		return nil, fmt.Errorf("form name %q: %w", ans.Form, err)
	}
	if _, err := docyaml.NewForm(ans.Kind, ans.Form); err != nil {
		return nil, err
	}
	w, h := ans.Canvas.X, ans.Canvas.Y
	size := min(w, h) / 4
	create := starterInstruction{Create: ans.Form}
	if ans.Kind == "line" {
		create.From = []float64{w/2 - size/2, h / 2}
		create.To = []float64{w/2 + size/2, h / 2}
	} else {
		create.At = []float64{w / 2, h / 2}
		create.Size = []float64{size, size}
		create.Centered = true
	}
	doc := starterDocument{
		Canvas: []float64{w, h},
		Sheet: map[string]string{
			"size": strconv.FormatFloat(size, 'g', -1, 64),
			"step": "size / 2.0",
		},
		Forms: map[string]string{ans.Form: ans.Kind},
		Instructions: []starterInstruction{
			create,
			{Translate: ans.Form, By: []string{"step", "0"}},
		},
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	header := fmt.Sprintf("# %s document %q\n# Run it with: %s run %s\n\n", appName, ans.Name, appName, ans.Name)
	return append([]byte(header), data...), nil
}
