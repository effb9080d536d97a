package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"reform/pkg/sheet"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var (
	flagReplDocument string
	flagReplPlain    bool
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive sheet: define names and evaluate expressions",
	Long: "Start an interactive sheet. Type `name = expr` to define a name and any\n" +
		"other expression to evaluate it. Tab completes functions, constants and\n" +
		"defined names. Type :help for commands.\n\n" +
		"--plain uses a line editor instead of the full-screen interface, with\n" +
		"history kept in the config directory.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var base *sheet.BaseSheet
		e, err := loadEnv()
		if err != nil {
			return err
		}
		if flagReplDocument != "" {
			path, err := e.find(flagReplDocument)
			if err != nil {
				return err
			}
			doc, err := e.load(path)
			if err != nil {
				return err
			}
			base = doc.Sheet
		}
		s := newSession(base)
		if flagReplPlain {
			return runPlainRepl(s, filepath.Join(e.configDir, "history"), cmd.OutOrStdout())
		}
		_, err = tea.NewProgram(newReplModel(s)).Run()
		return err
	},
}

func init() {
	replCmd.Flags().StringVar(&flagReplDocument, "doc", "", "start from this document's sheet")
	replCmd.Flags().BoolVar(&flagReplPlain, "plain", false, "use a plain line editor")
	_ = replCmd.RegisterFlagCompletionFunc("doc", completeDocuments)
}

// ─── full-screen ─────────────────────────────────────────────────────────────

type replModel struct {
	session *session
	input   textinput.Model
	// log holds prompt lines and their output, oldest first.
	log []string
	// history is what was entered, browsed with up and down.
	history []string
	cursor  int
	hint    string
}

const replLogLimit = 200

func newReplModel(s *session) replModel {
	ti := textinput.New()
	ti.Placeholder = "name = expr, or an expression"
	ti.Prompt = "› "
	ti.Focus()
	ti.CharLimit = 256
	return replModel{session: s, input: ti}
}

func (m replModel) Init() tea.Cmd { return textinput.Blink }

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyTab:
		m.completeInput()
		return m, nil

	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
			m.input.SetValue(m.history[m.cursor])
			m.input.CursorEnd()
		}
		return m, nil

	case tea.KeyDown:
		if m.cursor < len(m.history) {
			m.cursor++
			if m.cursor == len(m.history) {
				m.input.SetValue("")
			} else {
				m.input.SetValue(m.history[m.cursor])
			}
			m.input.CursorEnd()
		}
		return m, nil

	case tea.KeyEnter:
		line := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		m.hint = ""
		if line == "" {
			return m, nil
		}
		m.history = append(m.history, line)
		m.cursor = len(m.history)
		out, err := m.session.exec(line)
		if errors.Is(err, errQuit) {
			return m, tea.Quit
		}
		m.record(line, out, err)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.hint = ""
	return m, cmd
}

// completeInput extends the word under the cursor to the longest prefix
// shared by all candidates and lists them when more than one remains.
func (m *replModel) completeInput() {
	line := m.input.Value()
	cands, prefix := m.session.complete(line)
	switch len(cands) {
	case 0:
		m.hint = ""
		return
	case 1:
		m.hint = ""
	default:
		m.hint = strings.Join(cands, "  ")
	}
	if ext := commonPrefix(cands); len(ext) > len(prefix) {
		m.input.SetValue(line[:len(line)-len(prefix)] + ext)
		m.input.CursorEnd()
	}
}

func (m *replModel) record(line, out string, err error) {
	m.log = append(m.log, styleDim.Render("› ")+line)
	if out != "" {
		m.log = append(m.log, styleValue.Render(out))
	}
	if err != nil {
		m.log = append(m.log, styleErr.Render(err.Error()))
	}
	if n := len(m.log); n > replLogLimit {
		m.log = m.log[n-replLogLimit:]
	}
}

func (m replModel) View() string {
	var sb strings.Builder
	sb.WriteString(styleTitle.Render(appName+" repl") + "\n\n")
	for _, l := range m.log {
		sb.WriteString(l + "\n")
	}
	sb.WriteString("\n" + m.input.View() + "\n")
	if m.hint != "" {
		sb.WriteString(styleDim.Render(m.hint) + "\n")
	}
	sb.WriteString(styleHelp.Render("[tab] complete  [↑/↓] history  [enter] run  [esc] quit"))
	return sb.String()
}

// commonPrefix returns the longest prefix shared by every name.
func commonPrefix(names []string) string {
	if len(names) == 0 {
		return ""
	}
	p := names[0]
	for _, n := range names[1:] {
		for !strings.HasPrefix(n, p) {
			p = p[:len(p)-1]
		}
	}
	return p
}

// ─── plain ───────────────────────────────────────────────────────────────────

// sessionCompleter adapts session completion to readline, which wants the
// missing suffixes and the length of the word they extend.
type sessionCompleter struct{ s *session }

func (c sessionCompleter) Do(line []rune, pos int) ([][]rune, int) {
	cands, prefix := c.s.complete(string(line[:pos]))
	out := make([][]rune, 0, len(cands))
	for _, cand := range cands {
		out = append(out, []rune(strings.TrimPrefix(cand, prefix)))
	}
	return out, len([]rune(prefix))
}

func runPlainRepl(s *session, historyFile string, w io.Writer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "› ",
		HistoryFile:     historyFile,
		AutoComplete:    sessionCompleter{s: s},
		InterruptPrompt: "^C",
		EOFPrompt:       ":q",
	})
	if err != nil {
		return fmt.Errorf("line editor: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		out, err := s.exec(line)
		if errors.Is(err, errQuit) {
			return nil
		}
		if out != "" {
			fmt.Fprintln(w, out)
		}
		if err != nil {
			fmt.Fprintln(w, styleErr.Render(err.Error()))
		}
	}
}
