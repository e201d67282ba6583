package tui

import (
	"github.com/fentz26/leadboard/internal/board"
)

const (
	headerLines   = 2 // title + rule
	columnHeading = 2 // label + rule
	cardLines     = 3 // name, details, spacer
	footerLines   = 3 // toast, search, status bar
	minColWidth   = 18
)

// layout maps terminal cells to columns and cards. Rendering and hit-testing
// both go through it so they never disagree.
type layout struct {
	width    int
	height   int
	colWidth int
	offset   int // first visible column
	visible  int
	columns  int
}

// newLayout fits columns into width, scrolling horizontally so focus stays
// on screen. prevOffset keeps the view stable while focus moves within it.
func newLayout(width, height, columns, focus, prevOffset int) layout {
	l := layout{width: width, height: height, columns: columns}
	if columns == 0 || width <= 0 {
		return l
	}

	l.colWidth = width / columns
	l.visible = columns
	if l.colWidth < minColWidth {
		l.colWidth = minColWidth
		l.visible = width / minColWidth
		if l.visible < 1 {
			l.visible = 1
		}
	}

	l.offset = prevOffset
	if focus < l.offset {
		l.offset = focus
	}
	if focus >= l.offset+l.visible {
		l.offset = focus - l.visible + 1
	}
	if l.offset > columns-l.visible {
		l.offset = columns - l.visible
	}
	if l.offset < 0 {
		l.offset = 0
	}
	return l
}

// boardTop is the first row of the column area.
func (l layout) boardTop() int { return headerLines }

// boardHeight is the number of rows the columns occupy.
func (l layout) boardHeight() int {
	h := l.height - headerLines - footerLines
	if h < columnHeading+cardLines {
		h = columnHeading + cardLines
	}
	return h
}

// cardsPerColumn is how many cards fit below a column heading.
func (l layout) cardsPerColumn() int {
	n := (l.boardHeight() - columnHeading) / cardLines
	if n < 1 {
		n = 1
	}
	return n
}

func (l layout) isVisible(col int) bool {
	return col >= l.offset && col < l.offset+l.visible
}

func (l layout) columnRect(col int) board.Rect {
	return board.Rect{
		X: float64((col - l.offset) * l.colWidth),
		Y: float64(l.boardTop()),
		W: float64(l.colWidth),
		H: float64(l.boardHeight()),
	}
}

// targets registers every visible column as a drop target.
func (l layout) targets(cols []board.Column) []board.Target {
	out := make([]board.Target, 0, l.visible)
	for i := range cols {
		if l.isVisible(i) {
			out = append(out, board.Target{Status: cols[i].Status, Rect: l.columnRect(i)})
		}
	}
	return out
}

// columnAt returns the column index under x.
func (l layout) columnAt(x int) (int, bool) {
	if l.colWidth == 0 || x < 0 {
		return 0, false
	}
	col := l.offset + x/l.colWidth
	if !l.isVisible(col) {
		return 0, false
	}
	return col, true
}

// cardAt returns the column and card index under (x, y). scroll is the first
// card shown in each column; count is how many cards each column holds.
func (l layout) cardAt(x, y int, scroll, count []int) (int, int, bool) {
	col, ok := l.columnAt(x)
	if !ok || col >= len(count) {
		return 0, 0, false
	}
	rel := y - l.boardTop() - columnHeading
	if rel < 0 || y >= l.boardTop()+l.boardHeight() {
		return 0, 0, false
	}
	card := scroll[col] + rel/cardLines
	if card >= count[col] || card >= scroll[col]+l.cardsPerColumn() {
		return 0, 0, false
	}
	return col, card, true
}

// cardCenter is where a keyboard pickup of a card starts.
func (l layout) cardCenter(col, card, scroll int) board.Point {
	r := l.columnRect(col)
	return board.Point{
		X: r.X + r.W/2,
		Y: float64(l.boardTop()+columnHeading+(card-scroll)*cardLines) + float64(cardLines)/2,
	}
}

// columnCenter is where keyboard moves put the dragged card.
func (l layout) columnCenter(col int) board.Point {
	return l.columnRect(col).Center()
}

// clampScroll keeps card visible in a column of n cards.
func (l layout) clampScroll(scroll, card, n int) int {
	per := l.cardsPerColumn()
	if card < scroll {
		scroll = card
	}
	if card >= scroll+per {
		scroll = card - per + 1
	}
	if scroll > n-per {
		scroll = n - per
	}
	if scroll < 0 {
		scroll = 0
	}
	return scroll
}
