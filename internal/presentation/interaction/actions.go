package interaction

// Action is a viewer command bound to a key.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionHelp
	ActionZoomIn
	ActionZoomOut
	ActionScrollLeft
	ActionScrollRight
	ActionLaneUp
	ActionLaneDown
	ActionPageLeft
	ActionPageRight
	ActionNextPacket
	ActionPrevPacket
	ActionFirstPacket
	ActionLastPacket
	ActionSearch
	ActionNextMatch
	ActionPrevMatch
	ActionFit
	ActionCenter
	ActionToggleDetail
	ActionToggleLayout
	ActionToggleFollow
	ActionReload
	ActionCancel
)

// Binding documents one key binding for the help screen.
type Binding struct {
	Keys        string
	Action      Action
	Description string
}

// Bindings lists the default key map in help order.
var Bindings = []Binding{
	{"q, Ctrl+C", ActionQuit, "Quit"},
	{"h, ?", ActionHelp, "Toggle this help"},
	{"+, =", ActionZoomIn, "Zoom in around the selection"},
	{"-, _", ActionZoomOut, "Zoom out"},
	{"←, a", ActionScrollLeft, "Scroll left"},
	{"→, d", ActionScrollRight, "Scroll right"},
	{"↑, w", ActionLaneUp, "Scroll lanes up"},
	{"↓, s", ActionLaneDown, "Scroll lanes down"},
	{"PgUp, PgDn", ActionPageLeft, "Scroll one screen left or right"},
	{"n, Tab", ActionNextPacket, "Select the next packet in the lane"},
	{"p", ActionPrevPacket, "Select the previous packet in the lane"},
	{"Home, End", ActionFirstPacket, "Select the first or last packet"},
	{"/", ActionSearch, "Search calls (tid:N and #N select by thread or index)"},
	{"N, P", ActionNextMatch, "Next or previous search match"},
	{"f", ActionFit, "Fit the whole trace"},
	{"c", ActionCenter, "Center on the selection"},
	{"Enter", ActionToggleDetail, "Toggle the detail pane"},
	{"t", ActionToggleLayout, "Switch layout (Full / Minimal)"},
	{"F", ActionToggleFollow, "Toggle follow mode"},
	{"r", ActionReload, "Reload the trace"},
	{"Esc", ActionCancel, "Close help, detail or clear the search"},
}

var charActions = map[rune]Action{
	'q':  ActionQuit,
	3:    ActionQuit,
	'h':  ActionHelp,
	'?':  ActionHelp,
	'+':  ActionZoomIn,
	'=':  ActionZoomIn,
	'-':  ActionZoomOut,
	'_':  ActionZoomOut,
	'a':  ActionScrollLeft,
	'd':  ActionScrollRight,
	'w':  ActionLaneUp,
	's':  ActionLaneDown,
	'n':  ActionNextPacket,
	'\t': ActionNextPacket,
	'p':  ActionPrevPacket,
	'/':  ActionSearch,
	'N':  ActionNextMatch,
	'P':  ActionPrevMatch,
	'f':  ActionFit,
	'c':  ActionCenter,
	't':  ActionToggleLayout,
	'F':  ActionToggleFollow,
	'r':  ActionReload,
}

var keyActions = map[KeyType]Action{
	KeyEscape:   ActionCancel,
	KeyEnter:    ActionToggleDetail,
	KeyUp:       ActionLaneUp,
	KeyDown:     ActionLaneDown,
	KeyLeft:     ActionScrollLeft,
	KeyRight:    ActionScrollRight,
	KeyPageUp:   ActionPageLeft,
	KeyPageDown: ActionPageRight,
	KeyHome:     ActionFirstPacket,
	KeyEnd:      ActionLastPacket,
}

// Lookup maps a key event to its action in normal (non-search) mode.
func Lookup(ev KeyEvent) Action {
	if ev.Type == KeyChar {
		return charActions[ev.Key]
	}
	return keyActions[ev.Type]
}

// EditResult tells the caller what a key did to the search line.
type EditResult int

const (
	EditContinue EditResult = iota
	EditCommit
	EditCancel
)

// EditLine applies ev to the search query being typed.
func EditLine(query string, ev KeyEvent) (string, EditResult) {
	switch ev.Type {
	case KeyEnter:
		return query, EditCommit
	case KeyEscape:
		return query, EditCancel
	case KeyBackspace:
		r := []rune(query)
		if len(r) == 0 {
			return query, EditContinue
		}
		return string(r[:len(r)-1]), EditContinue
	case KeyChar:
		if ev.Key == 3 {
			return query, EditCancel
		}
		if ev.Key >= 32 && ev.Key != 127 {
			return query + string(ev.Key), EditContinue
		}
	}
	return query, EditContinue
}
