package display

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/core/rows"
	"github.com/penwyp/go-apitrace/internal/core/timeline"
	"github.com/penwyp/go-apitrace/internal/presentation/interaction"
	"github.com/penwyp/go-apitrace/internal/presentation/layout"
	"github.com/penwyp/go-apitrace/internal/util"
)

// RulerStep is the distance in cells between time axis ticks.
const RulerStep = 16

// View is what the renderer reads from an opened trace.
type View interface {
	Path() string
	Layout() *timeline.Layout
	Rows() *rows.Model
	Report() *model.LoadReport
}

type DisplayConfig struct {
	Styles      Styles
	DetailLines int
	LabelWidth  int
}

type displayMode int

const (
	modeNormal displayMode = iota
	modeHelp
	modeLoading
	modeDialog
)

var spinner = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// TerminalDisplay renders frames to out, rewriting only the lines that
// changed since the previous frame.
type TerminalDisplay struct {
	out               io.Writer
	config            *DisplayConfig
	base              layout.BaseStrategy
	inAlternateScreen bool
	previousScreen    []string
	isFirstRender     bool
	currentMode       displayMode
	frame             int
}

func NewTerminalDisplay(out io.Writer, config *DisplayConfig) *TerminalDisplay {
	if config == nil {
		config = &DisplayConfig{Styles: DefaultStyles()}
	}
	return &TerminalDisplay{
		out:           out,
		config:        config,
		isFirstRender: true,
	}
}

// EnterAlternateScreen switches to the alternate screen buffer
func (td *TerminalDisplay) EnterAlternateScreen() {
	if td.inAlternateScreen {
		return
	}
	io.WriteString(td.out, util.EnterAltScreen+util.ClearScreen+util.ClearScrollback+
		util.ResetScrollRegion+util.HideCursor+util.MoveCursorHome)
	td.inAlternateScreen = true
	td.isFirstRender = true
}

// ExitAlternateScreen returns to the normal screen buffer
func (td *TerminalDisplay) ExitAlternateScreen() {
	if !td.inAlternateScreen {
		return
	}
	io.WriteString(td.out, util.ClearScreen+util.MoveCursorHome+util.ShowCursor+util.ExitAltScreen)
	td.inAlternateScreen = false
}

// Arrange returns the screen regions for the given state.
func (td *TerminalDisplay) Arrange(width, height int, state model.InteractionState) layout.Screen {
	return layout.GetLayoutStrategy(state.LayoutStyle).Arrange(width, height, layout.Params{
		ShowDetail:  state.ShowDetail && state.SelectedRow >= 0,
		DetailLines: td.config.DetailLines,
		LabelWidth:  td.config.LabelWidth,
	})
}

// determineDisplayMode picks the screen: dialog > help > loading > normal
func (td *TerminalDisplay) determineDisplayMode(view View, state model.InteractionState) displayMode {
	if state.ConfirmDialog != nil {
		return modeDialog
	}
	if state.ShowHelp {
		return modeHelp
	}
	if state.IsLoading || view == nil {
		return modeLoading
	}
	return modeNormal
}

// RenderWithState draws one frame. view may be nil while the first load
// is running.
func (td *TerminalDisplay) RenderWithState(view View, state model.InteractionState, width, height int) error {
	mode := td.determineDisplayMode(view, state)
	if mode != td.currentMode {
		td.previousScreen = nil
		td.currentMode = mode
	}
	td.frame++
	return td.flush(td.Compose(view, state, width, height))
}

// Compose builds the lines of one frame without writing them. Each line
// occupies exactly width cells.
func (td *TerminalDisplay) Compose(view View, state model.InteractionState, width, height int) []string {
	var lines []string
	switch td.determineDisplayMode(view, state) {
	case modeDialog:
		lines = td.renderConfirmDialog(state.ConfirmDialog, width, height)
	case modeHelp:
		lines = td.renderHelp(width)
	case modeLoading:
		lines = td.renderLoadingScreen(state, width, height)
	default:
		lines = td.renderTimelineScreen(view, state, width, height)
	}
	return fit(lines, width, height)
}

// fit pads or cuts lines to height rows; unstyled rows are padded to width.
func fit(lines []string, width, height int) []string {
	out := make([]string, height)
	for i := range out {
		if i < len(lines) {
			out[i] = lines[i]
		} else {
			out[i] = strings.Repeat(" ", width)
		}
	}
	return out
}

func (td *TerminalDisplay) flush(lines []string) error {
	var b strings.Builder
	full := td.isFirstRender || len(td.previousScreen) != len(lines)
	if full {
		b.WriteString(util.ClearScreen)
		b.WriteString(util.MoveCursorHome)
		td.isFirstRender = false
	}
	for i, line := range lines {
		if !full && td.previousScreen[i] == line {
			continue
		}
		b.WriteString(util.MoveCursor(i+1, 1))
		b.WriteString(line)
		b.WriteString(util.ClearToLineEnd)
	}
	td.previousScreen = lines
	if b.Len() == 0 {
		return nil
	}
	_, err := io.WriteString(td.out, b.String())
	return err
}

func (td *TerminalDisplay) renderTimelineScreen(view View, state model.InteractionState, width, height int) []string {
	styles := &td.config.Styles
	scr := td.Arrange(width, height, state)
	l := view.Layout()
	l.SetViewport(model.Viewport{Width: float64(scr.Timeline.Width), Height: float64(scr.Timeline.Height)})

	lines := make([]string, 0, height)

	// Header
	if scr.Header.Height > 1 {
		title := fmt.Sprintf("go-apitrace  %s  %d packets  %d threads  zoom %.1fx",
			filepath.Base(view.Path()), view.Rows().RowCount(), l.Lanes().Len(), l.Zoom())
		lines = append(lines, styles.Title.Render(util.PadToWidth(title, width, true)))
	}
	ruler := td.base.Ruler(scr.Timeline.Width, RulerStep, func(col int) string {
		return util.FormatTicks(l.TimeAt(float64(col)))
	})
	lines = append(lines, styles.Ruler.Render(strings.Repeat(" ", scr.Labels.Width)+ruler))

	// Lanes
	grid := renderTimeline(l, view.Rows(), state, styles, scr.Timeline.Width, scr.Timeline.Height)
	var labels []string
	if scr.Labels.Visible() {
		labels = renderLabels(l, styles, scr.Labels.Width, scr.Labels.Height)
	}
	for y, row := range grid {
		if labels != nil {
			row = labels[y] + row
		}
		lines = append(lines, row)
	}

	// Detail
	if scr.Detail.Visible() {
		lines = append(lines, styles.Ruler.Render(td.base.SeparatorLine(width)))
		for _, line := range detailLines(view.Rows(), state.SelectedRow, scr.Detail.Height-1) {
			lines = append(lines, styles.Detail.Render(util.PadToWidth(line, width, true)))
		}
		for len(lines) < scr.Status.Y {
			lines = append(lines, strings.Repeat(" ", width))
		}
	}

	lines = append(lines, td.renderStatusLine(view, state, width))
	return lines
}

func detailLines(m *rows.Model, row, limit int) []string {
	if row < 0 || row >= m.RowCount() || limit <= 0 {
		return nil
	}
	h := m.Header(row)
	head := fmt.Sprintf("row %d  #%d  thread %d  [%d, %d]  %s ticks  %s",
		row, h.GlobalIndex, h.ThreadID, h.BeginTime, h.EndTime,
		m.CellText(row, rows.ColDuration), m.CellText(row, rows.ColSize))
	lines := []string{head}
	for _, l := range strings.Split(m.DisplayText(row).Multiline, "\n") {
		lines = append(lines, "  "+l)
	}
	if len(lines) > limit {
		lines = lines[:limit]
	}
	return lines
}

func (td *TerminalDisplay) renderStatusLine(view View, state model.InteractionState, width int) string {
	styles := &td.config.Styles
	var left string
	if state.SearchActive {
		left = "/" + state.SearchQuery + "▏"
	} else {
		parts := []string{view.Report().Summary()}
		if state.SearchQuery != "" {
			parts = append(parts, "search: "+state.SearchQuery)
		}
		if state.Following {
			parts = append(parts, "following")
		}
		parts = append(parts, "h for help")
		left = strings.Join(parts, " │ ")
	}
	text := left
	if state.StatusMessage != "" {
		text += "  " + state.StatusMessage
	}
	line := util.PadToWidth(" "+text, width, true)
	if view.Report().Len() > 0 && !state.SearchActive {
		return styles.StatusWarn.Render(line)
	}
	return styles.Status.Render(line)
}

func (td *TerminalDisplay) renderHelp(width int) []string {
	lines := []string{
		td.config.Styles.Title.Render(util.PadToWidth("go-apitrace - Help", width, true)),
		strings.Repeat("═", width),
		"",
		"Keyboard Shortcuts:",
		"",
	}
	for _, b := range interaction.Bindings {
		lines = append(lines, fmt.Sprintf("  %-12s %s", b.Keys, b.Description))
	}
	lines = append(lines,
		"",
		"Timeline:",
		"  One lane per thread, packets drawn at their begin and end time.",
		"  Packets whose end precedes their begin are flagged and drawn one cell wide.",
		"",
		strings.Repeat("═", width),
		"Press 'h' to return...",
	)
	for i, l := range lines {
		lines[i] = util.PadToWidth(l, width, true)
	}
	return lines
}

func (td *TerminalDisplay) renderConfirmDialog(dialog *model.ConfirmDialog, width, height int) []string {
	boxWidth := min(60, width)
	inner := boxWidth - 2
	var box []string
	box = append(box,
		"╔"+strings.Repeat("═", inner)+"╗",
		"║"+td.base.CenterText(dialog.Title, inner)+"║",
		"╠"+strings.Repeat("═", inner)+"╣",
		"║"+strings.Repeat(" ", inner)+"║",
	)
	for _, line := range wrapText(dialog.Message, inner-2) {
		box = append(box, "║ "+util.PadToWidth(line, inner-2, true)+" ║")
	}
	box = append(box,
		"║"+strings.Repeat(" ", inner)+"║",
		"║"+td.base.CenterText("(Y)es / (N)o", inner)+"║",
		"╚"+strings.Repeat("═", inner)+"╝",
	)
	return td.center(box, width, height, td.config.Styles.Dialog)
}

// renderLoadingScreen shows a spinner box, with a progress bar when the
// build reports progress.
func (td *TerminalDisplay) renderLoadingScreen(state model.InteractionState, width, height int) []string {
	boxWidth := min(50, width)
	inner := boxWidth - 2
	message := state.LoadingMessage
	if message == "" {
		message = "Indexing trace..."
	}
	animated := spinner[td.frame%len(spinner)] + " " + message

	box := []string{
		"╔" + strings.Repeat("═", inner) + "╗",
		"║" + td.base.CenterText("go-apitrace", inner) + "║",
		"╠" + strings.Repeat("═", inner) + "╣",
		"║" + strings.Repeat(" ", inner) + "║",
		"║" + td.base.CenterText(animated, inner) + "║",
	}
	if state.LoadingPercent >= 0 {
		bar := fmt.Sprintf("%s %3.0f%%", util.CreateProgressBar(state.LoadingPercent, inner-10), state.LoadingPercent)
		box = append(box, "║"+td.base.CenterText(bar, inner)+"║")
	}
	box = append(box,
		"║"+strings.Repeat(" ", inner)+"║",
		"║"+td.base.CenterText("Press 'q' to quit", inner)+"║",
		"╚"+strings.Repeat("═", inner)+"╝",
	)
	return td.center(box, width, height, td.config.Styles.Dialog)
}

// center places box in the middle of a width x height screen.
func (td *TerminalDisplay) center(box []string, width, height int, style lipgloss.Style) []string {
	top := max((height-len(box))/2, 0)
	lines := make([]string, 0, height)
	for i := 0; i < top; i++ {
		lines = append(lines, strings.Repeat(" ", width))
	}
	for _, l := range box {
		lines = append(lines, style.Render(td.base.CenterText(l, width)))
	}
	return lines
}

// wrapText wraps text on word boundaries to fit within width cells
func wrapText(text string, width int) []string {
	if text == "" {
		return []string{}
	}
	if util.GetDisplayWidth(text) <= width {
		return []string{text}
	}

	var lines []string
	currentLine := ""
	for _, word := range strings.Fields(text) {
		if currentLine == "" {
			currentLine = word
		} else if util.GetDisplayWidth(currentLine)+1+util.GetDisplayWidth(word) <= width {
			currentLine += " " + word
		} else {
			lines = append(lines, currentLine)
			currentLine = word
		}
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}
	return lines
}
