// Package tui provides the interactive terminal kanban board.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/leadboard/internal/board"
	"github.com/fentz26/leadboard/internal/models"
	"go.uber.org/zap"
)

var (
	// Colors
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#6366F1")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	fgColor        = lipgloss.Color("#F9FAFB")
	cyanColor      = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true)

	columnHeadingStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(cyanColor)

	dropTargetStyle = lipgloss.NewStyle().
			Bold(true).
			Background(successColor).
			Foreground(fgColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	onlineStyle  = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	offlineStyle = lipgloss.NewStyle().Foreground(errorColor)
)

// LeadAPI is what the board UI needs from the lead store.
type LeadAPI interface {
	board.LeadStore
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	Events(ctx context.Context, leadID string) ([]models.LeadEvent, error)
}

type mode int

const (
	modeBoard mode = iota
	modeDetail
	modeMove
	modeConfirmDelete
)

// Options configures the App.
type Options struct {
	API     LeadAPI
	Caps    board.DeviceCapabilities
	Log     *zap.Logger
	Timeout time.Duration
}

type dropResult struct {
	leadID string
	target models.Status
	ok     bool
}

// App is the kanban board model.
type App struct {
	api      LeadAPI
	board    *board.Board
	drag     *board.DragController
	notifier *toastNotifier
	log      *zap.Logger
	timeout  time.Duration

	width  int
	height int
	lay    layout
	mode   mode

	col    int
	card   []int
	scroll []int

	dragging string
	kbCol    int
	drop     *dropResult
	moveIdx  int

	search *SearchBarModel
	detail *LeadDetailModel

	toast    *toast
	toastSeq int
	online   bool
	loading  bool
}

// New creates the board UI.
func New(opts Options) *App {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Caps == nil {
		opts.Caps = NewTerminalCaps(false, board.DefaultThresholds())
	}

	n := len(models.Statuses())
	a := &App{
		api:      opts.API,
		notifier: newToastNotifier(),
		log:      opts.Log,
		timeout:  opts.Timeout,
		card:     make([]int, n),
		scroll:   make([]int, n),
		search:   NewSearchBarModel(),
		detail:   NewLeadDetailModel(opts.API, opts.Timeout),
		width:    120,
		height:   30,
	}
	a.board = board.New(opts.API, a.notifier, opts.Log)
	a.drag = board.NewDragController(opts.Caps, a.dropTargets, board.DragCallbacks{
		OnDragStart: func(id string) {
			a.dragging = id
		},
		OnDragEnd: func(id string, target models.Status, ok bool) {
			a.dragging = ""
			a.drop = &dropResult{leadID: id, target: target, ok: ok}
		},
	}, opts.Log)
	a.relayout()
	return a
}

// Run starts the TUI with mouse support.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.loadBoard(),
		a.notifier.waitForToast(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a, a.handleKey(msg)

	case tea.MouseMsg:
		return a, a.handleMouse(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.search.SetWidth(msg.Width - 6)
		a.detail.SetSize(msg.Width, msg.Height-headerLines-footerLines)
		a.relayout()

	case boardLoadedMsg:
		a.loading = false
		a.online = msg.err == nil
		a.clampSelection()

	case boardChangedMsg:
		a.clampSelection()

	case dragTickMsg:
		a.drag.Tick(time.Time(msg))
		return a, a.afterGesture()

	case toastMsg:
		t := toast(msg)
		a.toast = &t
		a.toastSeq++
		return a, tea.Batch(a.notifier.waitForToast(), clearToastAfter(a.toastSeq))

	case clearToastMsg:
		if msg.seq == a.toastSeq {
			a.toast = nil
		}

	case leadDetailLoadedMsg:
		return a, a.detail.Update(msg)
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()

	if a.search.Focused() {
		switch key {
		case "enter":
			a.search.Blur()
			return nil
		case "esc":
			a.search.Clear()
			a.board.SetSearch("")
			a.clampSelection()
			return nil
		}
		cmd := a.search.Update(msg)
		a.board.SetSearch(a.search.Value())
		a.clampSelection()
		return cmd
	}

	switch a.mode {
	case modeDetail:
		if key == "esc" || key == "q" {
			a.mode = modeBoard
			return nil
		}
		return a.detail.Update(msg)

	case modeMove:
		statuses := models.Statuses()
		switch key {
		case "up", "k":
			if a.moveIdx > 0 {
				a.moveIdx--
			}
		case "down", "j":
			if a.moveIdx < len(statuses)-1 {
				a.moveIdx++
			}
		case "enter":
			a.mode = modeBoard
			if lead, ok := a.selectedLead(); ok {
				return a.transition(lead.ID, statuses[a.moveIdx])
			}
		case "esc", "q":
			a.mode = modeBoard
		}
		return nil

	case modeConfirmDelete:
		a.mode = modeBoard
		if key == "y" || key == "Y" {
			if lead, ok := a.selectedLead(); ok {
				return a.deleteLead(lead.ID)
			}
		}
		return nil
	}

	if a.dragging != "" {
		return a.handleDragKey(key)
	}

	switch key {
	case "q":
		return tea.Quit
	case "left", "h":
		if a.col > 0 {
			a.col--
			a.relayout()
		}
	case "right", "l":
		if a.col < len(a.card)-1 {
			a.col++
			a.relayout()
		}
	case "up", "k":
		if a.card[a.col] > 0 {
			a.card[a.col]--
			a.clampSelection()
		}
	case "down", "j":
		a.card[a.col]++
		a.clampSelection()
	case " ", "space":
		if lead, ok := a.selectedLead(); ok {
			a.kbCol = a.col
			a.drag.Handle(board.GestureEvent{
				Kind:   board.GesturePress,
				Device: board.DeviceKeyboard,
				LeadID: lead.ID,
				Point:  a.lay.cardCenter(a.col, a.card[a.col], a.scroll[a.col]),
			})
			return a.afterGesture()
		}
	case "enter":
		if lead, ok := a.selectedLead(); ok {
			a.mode = modeDetail
			a.detail.SetLead(lead.ID)
			return a.detail.Refresh()
		}
	case "m":
		if lead, ok := a.selectedLead(); ok {
			a.mode = modeMove
			a.moveIdx = lead.Status.Index()
		}
	case "D":
		if _, ok := a.selectedLead(); ok {
			a.mode = modeConfirmDelete
		}
	case "/":
		return a.search.Focus()
	case "r":
		return a.loadBoard()
	}
	return nil
}

// handleDragKey moves a keyboard-lifted card between columns.
func (a *App) handleDragKey(key string) tea.Cmd {
	switch key {
	case "left", "h":
		if a.kbCol > 0 {
			a.kbCol--
		}
	case "right", "l":
		if a.kbCol < len(a.card)-1 {
			a.kbCol++
		}
	case " ", "space", "enter":
		a.drag.Handle(board.GestureEvent{
			Kind:   board.GestureRelease,
			Device: board.DeviceKeyboard,
			Point:  a.lay.columnCenter(a.kbCol),
		})
		return a.afterGesture()
	case "esc":
		a.drag.Handle(board.GestureEvent{Kind: board.GestureCancel})
		return a.afterGesture()
	default:
		return nil
	}

	a.relayoutFocus(a.kbCol)
	a.drag.Handle(board.GestureEvent{
		Kind:   board.GestureMove,
		Device: board.DeviceKeyboard,
		Point:  a.lay.columnCenter(a.kbCol),
	})
	return nil
}

func (a *App) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if a.mode != modeBoard || a.search.Focused() {
		return nil
	}
	p := board.Point{X: float64(msg.X), Y: float64(msg.Y)}

	switch msg.Type {
	case tea.MouseLeft:
		if _, _, active := a.drag.Active(); active || a.drag.Pending() {
			a.drag.Handle(board.GestureEvent{Kind: board.GestureMove, Device: board.DevicePointer, Point: p})
			return a.afterGesture()
		}
		col, card, ok := a.lay.cardAt(msg.X, msg.Y, a.scroll, a.counts())
		if !ok {
			return nil
		}
		a.col, a.card[col] = col, card
		lead, ok := a.selectedLead()
		if !ok {
			return nil
		}
		a.drag.Handle(board.GestureEvent{Kind: board.GesturePress, Device: board.DevicePointer, LeadID: lead.ID, Point: p})
		return a.afterGesture()

	case tea.MouseMotion:
		a.drag.Handle(board.GestureEvent{Kind: board.GestureMove, Device: board.DevicePointer, Point: p})
		return a.afterGesture()

	case tea.MouseRelease:
		a.drag.Handle(board.GestureEvent{Kind: board.GestureRelease, Device: board.DevicePointer, Point: p})
		return a.afterGesture()

	case tea.MouseWheelUp, tea.MouseWheelDown:
		col, ok := a.lay.columnAt(msg.X)
		if !ok {
			return nil
		}
		if msg.Type == tea.MouseWheelUp {
			a.scroll[col]--
		} else {
			a.scroll[col]++
		}
		n := a.counts()[col]
		a.scroll[col] = a.lay.clampScroll(a.scroll[col], a.scroll[col], n)
	}
	return nil
}

// afterGesture applies a finished drop and keeps delayed presses ticking.
func (a *App) afterGesture() tea.Cmd {
	if d := a.drop; d != nil {
		a.drop = nil
		if !d.ok {
			return nil
		}
		return a.transition(d.leadID, d.target)
	}
	if wait, ok := a.drag.UntilActivation(time.Now()); ok {
		return tea.Tick(wait, func(t time.Time) tea.Msg {
			return dragTickMsg(t)
		})
	}
	return nil
}

// transition moves a lead on the board now and confirms it in the background.
func (a *App) transition(id string, status models.Status) tea.Cmd {
	t, err := a.board.Begin(id, status)
	if err != nil {
		a.log.Debug("transition rejected", zap.String("lead_id", id), zap.Error(err))
		return nil
	}
	if t == nil {
		return nil
	}
	a.followLead(id, status)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		return boardChangedMsg{err: t.Commit(ctx)}
	}
}

func (a *App) deleteLead(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		return boardChangedMsg{err: a.board.Delete(ctx, id)}
	}
}

func (a *App) loadBoard() tea.Cmd {
	a.loading = true
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		return boardLoadedMsg{err: a.board.Load(ctx)}
	}
}

func (a *App) dropTargets() []board.Target {
	return a.lay.targets(a.board.Columns())
}

func (a *App) counts() []int {
	cols := a.board.Columns()
	out := make([]int, len(cols))
	for i, c := range cols {
		out[i] = len(c.Leads)
	}
	return out
}

func (a *App) selectedLead() (models.Lead, bool) {
	cols := a.board.Columns()
	if a.col >= len(cols) {
		return models.Lead{}, false
	}
	leads := cols[a.col].Leads
	if i := a.card[a.col]; i < len(leads) {
		return leads[i], true
	}
	return models.Lead{}, false
}

// followLead moves focus to a lead after it changes column.
func (a *App) followLead(id string, status models.Status) {
	col := status.Index()
	if col < 0 {
		return
	}
	for i, l := range a.board.Columns()[col].Leads {
		if l.ID == id {
			a.col, a.card[col] = col, i
			break
		}
	}
	a.clampSelection()
}

func (a *App) relayout() {
	a.relayoutFocus(a.col)
}

func (a *App) relayoutFocus(focus int) {
	a.lay = newLayout(a.width, a.height, len(a.card), focus, a.lay.offset)
}

func (a *App) clampSelection() {
	counts := a.counts()
	for i, n := range counts {
		if a.card[i] >= n {
			a.card[i] = n - 1
		}
		if a.card[i] < 0 {
			a.card[i] = 0
		}
	}
	a.relayout()
	a.scroll[a.col] = a.lay.clampScroll(a.scroll[a.col], a.card[a.col], counts[a.col])
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.renderHeader() + "\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", a.width)) + "\n")

	bodyHeight := a.lay.boardHeight()
	switch a.mode {
	case modeDetail:
		b.WriteString(fitHeight(a.detail.View(), bodyHeight))
	case modeMove:
		b.WriteString(fitHeight(a.renderMoveMenu(), bodyHeight))
	default:
		b.WriteString(a.renderBoard())
	}
	b.WriteString("\n")

	b.WriteString(a.renderToast() + "\n")
	b.WriteString(a.search.View() + "\n")
	b.WriteString(statusBarStyle.Width(a.width).Render(a.statusLine()))
	return b.String()
}

func (a *App) renderHeader() string {
	daemon := onlineStyle.Render("● DAEMON")
	if !a.online {
		daemon = offlineStyle.Render("○ DAEMON")
	}
	header := titleStyle.Render("LEADBOARD · Lead Pipeline")
	header += "  " + daemon
	header += "  " + lipgloss.NewStyle().Foreground(cyanColor).Render(fmt.Sprintf("[%d leads]", len(a.board.Leads())))
	if a.loading {
		header += "  " + mutedStyle.Render("loading…")
	}
	return header
}

func (a *App) renderBoard() string {
	cols := a.board.Columns()
	hover := models.Status("")
	if _, p, ok := a.drag.Active(); ok {
		if st, ok := board.ClosestCenter(p, a.lay.targets(cols)); ok {
			hover = st
		}
	}

	var rendered []string
	for i := range cols {
		if a.lay.isVisible(i) {
			rendered = append(rendered, a.renderColumn(i, cols[i], hover))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (a *App) renderColumn(idx int, col board.Column, hover models.Status) string {
	w := a.lay.colWidth - 1
	lines := make([]string, 0, a.lay.boardHeight())

	heading := truncate(fmt.Sprintf("%s (%d)", col.Label, len(col.Leads)), w)
	switch {
	case a.dragging != "" && col.Status == hover:
		heading = dropTargetStyle.Render(heading)
	case idx == a.col && a.dragging == "":
		heading = columnHeadingStyle.Underline(true).Render(heading)
	default:
		heading = columnHeadingStyle.Render(heading)
	}
	lines = append(lines, heading, mutedStyle.Render(strings.Repeat("─", w)))

	per := a.lay.cardsPerColumn()
	start := a.scroll[idx]
	for k := start; k < len(col.Leads) && k < start+per; k++ {
		lines = append(lines, a.renderCard(col.Leads[k], idx == a.col && k == a.card[idx], w)...)
	}
	if len(col.Leads) == 0 {
		lines = append(lines, helpStyle.Render(truncate("drop leads here", w)))
	}

	for len(lines) < a.lay.boardHeight() {
		lines = append(lines, "")
	}
	lines = lines[:a.lay.boardHeight()]

	for i, l := range lines {
		lines[i] = pad(l, w) + mutedStyle.Render("│")
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderCard(l models.Lead, selected bool, w int) []string {
	prefix := "  "
	switch {
	case l.ID == a.dragging:
		prefix = "⇡ "
	case a.board.InFlight(l.ID):
		prefix = "⟳ "
	case selected:
		prefix = "▶ "
	}

	name := truncate(prefix+l.FullName(), w)
	details := []string{}
	if l.Suburb != "" {
		details = append(details, l.Suburb)
	}
	details = append(details, strings.ToLower(string(l.Urgency)))
	if l.EstimatedValue != nil {
		details = append(details, fmt.Sprintf("$%.0f", *l.EstimatedValue))
	}
	detail := truncate("  "+strings.Join(details, " · "), w)

	switch {
	case l.ID == a.dragging:
		name = mutedStyle.Render(name)
		detail = mutedStyle.Render(detail)
	case selected:
		name = selectedStyle.Render(pad(name, w))
	default:
		name = lipgloss.NewStyle().Bold(true).Render(name)
		detail = urgencyStyle(l.Urgency).Render(detail)
	}
	return []string{name, detail, ""}
}

func (a *App) renderMoveMenu() string {
	lead, ok := a.selectedLead()
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("\n  Move %s to:\n\n", lipgloss.NewStyle().Bold(true).Render(lead.FullName())))
	for i, st := range models.Statuses() {
		label := st.Label()
		if st == lead.Status {
			label += " (current)"
		}
		if i == a.moveIdx {
			b.WriteString("  " + selectedStyle.Render("▶ "+label) + "\n")
		} else {
			b.WriteString("    " + label + "\n")
		}
	}
	return b.String()
}

func (a *App) renderToast() string {
	if a.toast == nil {
		return ""
	}
	if a.toast.isErr {
		return errorStyle.Render("✗ " + a.toast.msg)
	}
	return successStyle.Render("✓ " + a.toast.msg)
}

func (a *App) statusLine() string {
	switch {
	case a.dragging != "":
		name := a.dragging
		if l, ok := a.board.Lead(a.dragging); ok {
			name = l.FullName()
		}
		return fmt.Sprintf(" Dragging %s | ←→:column | Space/Enter:drop | Esc:cancel", name)
	case a.mode == modeDetail:
		return " ↑↓:scroll | r:refresh | Esc:back"
	case a.mode == modeMove:
		return " ↑↓:choose | Enter:move | Esc:cancel"
	case a.mode == modeConfirmDelete:
		if l, ok := a.selectedLead(); ok {
			return fmt.Sprintf(" Delete %s? y:confirm | any key:cancel", l.FullName())
		}
		return " Delete? y:confirm"
	default:
		return " ←→↑↓:nav | Space:lift | m:move | Enter:details | /:search | D:delete | r:reload | q:quit"
	}
}

func formatStatus(st models.Status) string {
	style := lipgloss.NewStyle()
	switch st {
	case models.StatusNew:
		style = style.Foreground(cyanColor)
	case models.StatusContacted, models.StatusFormCompleted:
		style = style.Foreground(secondaryColor)
	case models.StatusQualified, models.StatusQuoted:
		style = style.Foreground(primaryColor)
	case models.StatusConverted:
		style = style.Foreground(successColor)
	case models.StatusClosedLost:
		style = style.Foreground(errorColor)
	case models.StatusFollowUp:
		style = style.Foreground(warningColor)
	}
	return style.Render(st.Label())
}

func urgencyStyle(u models.Urgency) lipgloss.Style {
	switch u {
	case models.UrgencyUrgent:
		return lipgloss.NewStyle().Foreground(errorColor)
	case models.UrgencyHigh:
		return lipgloss.NewStyle().Foreground(warningColor)
	default:
		return mutedStyle
	}
}

func formatUrgency(u models.Urgency) string {
	return urgencyStyle(u).Render(humanize(string(u)))
}

// humanize turns ENUM_VALUES into "Enum values".
func humanize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(strings.ReplaceAll(s, "_", " "))
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func pad(s string, w int) string {
	if gap := w - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

func fitHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	for len(lines) < h {
		lines = append(lines, "")
	}
	return strings.Join(lines[:h], "\n")
}

type boardLoadedMsg struct {
	err error
}

type boardChangedMsg struct {
	err error
}

type dragTickMsg time.Time
