package vim

// Mode is one state of the modal state machine.
type Mode int

const (
	ModeNormal Mode = iota
	ModeInsert
	ModeVisual
	ModeVisualBlock
	ModeVisualLine
	ModeSearchInProgress
	ModeReplace
	// ModeEasyMotion belongs to a jump-label overlay a host may drive. No
	// built-in action enters it; selection changes are ignored while in it.
	ModeEasyMotion
	ModeSurroundInput
)

// CursorStyle is how the host should draw the caret in a mode.
type CursorStyle int

const (
	CursorBlock CursorStyle = iota
	CursorLine
	CursorLineThin
	CursorUnderline
	CursorTextDecoration
	CursorNative
)

type modeInfo struct {
	name   string
	status string
	style  CursorStyle
	visual bool
}

var modeTable = map[Mode]modeInfo{
	ModeNormal:           {"Normal", "-- NORMAL --", CursorBlock, false},
	ModeInsert:           {"Insert", "-- INSERT --", CursorLine, false},
	ModeVisual:           {"Visual", "-- VISUAL --", CursorTextDecoration, true},
	ModeVisualBlock:      {"VisualBlock", "-- VISUAL BLOCK --", CursorTextDecoration, true},
	ModeVisualLine:       {"VisualLine", "-- VISUAL LINE --", CursorBlock, true},
	ModeSearchInProgress: {"SearchInProgress", "", CursorBlock, false},
	ModeReplace:          {"Replace", "-- REPLACE --", CursorUnderline, false},
	ModeEasyMotion:       {"EasyMotion", "-- EASYMOTION --", CursorBlock, false},
	ModeSurroundInput:    {"SurroundInput", "-- SURROUND --", CursorBlock, false},
}

func (m Mode) String() string {
	if info, ok := modeTable[m]; ok {
		return info.name
	}
	return "Unknown"
}

// IsVisual reports whether m is one of the three visual modes.
func (m Mode) IsVisual() bool {
	return modeTable[m].visual
}

// CursorStyle returns the caret style hosts should use in m.
func (m Mode) CursorStyle() CursorStyle {
	return modeTable[m].style
}

// StatusText returns the status-bar label for m.
func (m Mode) StatusText() string {
	return modeTable[m].status
}

var (
	normalAndVisual = []Mode{ModeNormal, ModeVisual, ModeVisualLine, ModeVisualBlock}
	visualModes     = []Mode{ModeVisual, ModeVisualLine, ModeVisualBlock}
	onlyNormal      = []Mode{ModeNormal}
	onlyInsert      = []Mode{ModeInsert}
)

// RegisterMode says how register text is laid out.
type RegisterMode int

const (
	RegisterFigureItOut RegisterMode = iota
	RegisterCharacterWise
	RegisterLineWise
	RegisterBlockWise
)

func (r RegisterMode) String() string {
	switch r {
	case RegisterCharacterWise:
		return "characterwise"
	case RegisterLineWise:
		return "linewise"
	case RegisterBlockWise:
		return "blockwise"
	default:
		return "auto"
	}
}
