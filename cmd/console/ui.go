package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/zekusmaximus/runtime-engine/internal/storage"
	"github.com/zekusmaximus/runtime-engine/pkg/expression"
	"github.com/zekusmaximus/runtime-engine/pkg/scenario"
	"github.com/zekusmaximus/runtime-engine/pkg/state"
	"github.com/zekusmaximus/runtime-engine/pkg/textfilter"
)

const placeholderText = "Expression to evaluate, or press enter to tick..."

var (
	logPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingBottom(1).
			PaddingLeft(2).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(1).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	promptTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	exprStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")). // yellow
			Bold(true)
)

// ConsoleUI is the BubbleTea model that runs the simulation console.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	engine   *expression.Engine
	store    storage.Storage
	scenario *scenario.Scenario
	gs       *state.GameState

	logViewport  viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model

	promptFilter *textfilter.PromptFilter

	lines      []string
	lastResult string
	ready      bool
	width      int
	height     int
}

func NewConsoleUI(eng *expression.Engine, store storage.Storage, s *scenario.Scenario, gs *state.GameState) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = placeholderText
	ta.Focus()
	ta.Prompt = dimStyle.Render(":: ")
	ta.CharLimit = expression.MaxExpressionLength
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	logVp := viewport.New(50, 20)
	logVp.MouseWheelEnabled = true
	metaVp := viewport.New(30, 20)

	ui := ConsoleUI{
		engine:       eng,
		store:        store,
		scenario:     s,
		gs:           gs,
		textarea:     ta,
		logViewport:  logVp,
		metaViewport: metaVp,
	}
	if textfilter.ShouldFilterContent(s.Rating) {
		ui.promptFilter = textfilter.NewPromptFilter()
	}
	ui.pushLine(titleStyle.Render(s.Name))
	if s.Story != "" {
		ui.pushLine(promptTextStyle.Render(s.Story))
	}
	ui.pushLine(dimStyle.Render("enter: advance tick | expression: evaluate | ctrl+y: copy result | esc: quit"))
	return ui
}

func (ui ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (ui ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var taCmd, vpCmd tea.Cmd
	ui.textarea, taCmd = ui.textarea.Update(msg)
	ui.logViewport, vpCmd = ui.logViewport.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		ui.width = msg.Width
		ui.height = msg.Height
		ui.layout()
		ui.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			return ui, tea.Quit

		case tea.KeyCtrlY:
			if ui.lastResult != "" {
				if err := clipboard.WriteAll(ui.lastResult); err != nil {
					ui.pushLine(errorStyle.Render("clipboard: " + err.Error()))
				} else {
					ui.pushLine(dimStyle.Render("copied result to clipboard"))
				}
				ui.refresh()
			}

		case tea.KeyEnter:
			input := strings.TrimSpace(ui.textarea.Value())
			ui.textarea.Reset()
			if input == "" {
				ui.advanceTick()
			} else {
				ui.evaluate(input)
			}
			ui.refresh()
		}
	}

	return ui, tea.Batch(taCmd, vpCmd)
}

// advanceTick steps the simulation one turn: counters, process drift,
// trigger evaluation, state application, and a best-effort save.
func (ui *ConsoleUI) advanceTick() {
	if ui.gs.GameEnded {
		ui.pushLine(dimStyle.Render("the session has ended"))
		return
	}

	ui.gs.Tick()
	driftProcesses(ui.gs)

	fired := ui.scenario.EvaluateTriggers(ui.engine, ui.gs)
	state.Apply(ui.gs, ui.scenario, fired)

	ui.pushLine(headerStyle.Render(fmt.Sprintf("-- tick %d --", ui.gs.TurnCounter)))
	for _, prompt := range ui.gs.DrainPrompts() {
		if ui.promptFilter != nil {
			prompt = ui.promptFilter.FilterText(prompt)
		}
		ui.pushLine(promptTextStyle.Render(prompt))
	}
	for _, f := range fired {
		ui.pushLine(dimStyle.Render("trigger fired: " + f.Key()))
	}
	if ui.gs.GameEnded {
		ui.pushLine(titleStyle.Render("SESSION ENDED"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ui.store.SaveGameState(ctx, ui.gs.ID, ui.gs); err != nil {
		ui.pushLine(errorStyle.Render("save failed: " + err.Error()))
	}
}

// evaluate runs an ad-hoc expression against the live context.
func (ui *ConsoleUI) evaluate(input string) {
	ui.pushLine(exprStyle.Render("> " + input))

	ctx := ui.gs.Context()
	num, err := ui.engine.Evaluate(input, ctx)
	if err == nil {
		ui.lastResult = strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", num), "0"), ".")
		ui.pushLine(resultStyle.Render("= " + ui.lastResult))
		return
	}

	// Boolean expressions are not numbers; re-run them as a condition.
	var ee *expression.EvalError
	if errors.As(err, &ee) && ee.NonNumeric {
		cond, condErr := ui.engine.EvaluateCondition(input, ctx)
		if condErr == nil {
			ui.lastResult = fmt.Sprintf("%t", cond)
			ui.pushLine(resultStyle.Render("= " + ui.lastResult))
			return
		}
		err = condErr
	}
	ui.pushLine(errorStyle.Render(err.Error()))
}

// driftProcesses nudges process metrics each tick so that authored
// conditions over memory and CPU have movement to react to.
func driftProcesses(gs *state.GameState) {
	for name, p := range gs.Processes {
		if p.Status != state.ProcessStatusRunning {
			continue
		}
		p.MemoryUsage += p.CPUUsage * 0.5 * float64(p.Threads)
		if p.MemoryUsage < 0 {
			p.MemoryUsage = 0
		}
		gs.Processes[name] = p
	}
}

func (ui *ConsoleUI) pushLine(line string) {
	ui.lines = append(ui.lines, line)
}

func (ui *ConsoleUI) refresh() {
	width := ui.logViewport.Width - 4
	if width < 10 {
		width = 10
	}
	ui.logViewport.SetContent(wordwrap.String(strings.Join(ui.lines, "\n"), width))
	ui.logViewport.GotoBottom()
	ui.metaViewport.SetContent(ui.metaContent())
}

func (ui *ConsoleUI) layout() {
	metaWidth := ui.width / 3
	if metaWidth > 44 {
		metaWidth = 44
	}
	logWidth := ui.width - metaWidth

	inputHeight := 3
	bodyHeight := ui.height - inputHeight - 1

	ui.logViewport.Width = logWidth
	ui.logViewport.Height = bodyHeight
	ui.metaViewport.Width = metaWidth
	ui.metaViewport.Height = bodyHeight
	ui.textarea.SetWidth(ui.width - 4)
	ui.refresh()
}

func (ui *ConsoleUI) metaContent() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("SYSTEM MONITOR") + "\n\n")
	b.WriteString(fmt.Sprintf("scene: %s\n", ui.gs.SceneName))
	b.WriteString(fmt.Sprintf("turn:  %d (scene %d)\n\n", ui.gs.TurnCounter, ui.gs.SceneTurnCounter))

	procNames := make([]string, 0, len(ui.gs.Processes))
	for name := range ui.gs.Processes {
		procNames = append(procNames, name)
	}
	sort.Strings(procNames)
	for _, name := range procNames {
		p := ui.gs.Processes[name]
		b.WriteString(exprStyle.Render(name) + " " + dimStyle.Render(p.Status) + "\n")
		b.WriteString(fmt.Sprintf("  mem %.0f  cpu %.1f  thr %d\n", p.MemoryUsage, p.CPUUsage, p.Threads))
	}

	varNames := make([]string, 0, len(ui.gs.Vars))
	for name := range ui.gs.Vars {
		varNames = append(varNames, name)
	}
	sort.Strings(varNames)
	if len(varNames) > 0 {
		b.WriteString("\n" + headerStyle.Render("VARS") + "\n")
		for _, name := range varNames {
			b.WriteString(fmt.Sprintf("%s = %s\n", name, ui.gs.Vars[name]))
		}
	}

	stats := ui.engine.Stats()
	b.WriteString("\n" + headerStyle.Render("EVALUATOR") + "\n")
	b.WriteString(fmt.Sprintf("evaluations: %d\n", stats.TotalEvaluations))
	b.WriteString(fmt.Sprintf("violations:  %d\n", stats.SecurityViolations))
	for i := len(stats.RecentViolations) - 1; i >= 0 && i >= len(stats.RecentViolations)-3; i-- {
		v := stats.RecentViolations[i]
		b.WriteString(errorStyle.Render("! "+v.Reason) + "\n")
	}

	return b.String()
}

func (ui ConsoleUI) View() string {
	if !ui.ready {
		return "Loading..."
	}

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		logPanelStyle.Render(ui.logViewport.View()),
		metaPanelStyle.Render(ui.metaViewport.View()),
	)
	return body + "\n" + ui.textarea.View()
}
