package tracing

// Span names.
const (
	SpanDispatchKey    = "dispatch.key"
	SpanSelection      = "dispatch.selection"
	SpanBatchApply     = "batch.apply"
	SpanRemapReplay    = "remap.replay"
	SpanMacroReplay    = "macro.replay"
	SpanDotRepeat      = "history.dot_repeat"
	SpanConfigReloaded = "config.reload"
)

// Span attribute keys.
const (
	AttrSessionID   = "session.id"
	AttrKey         = "key.name"
	AttrMode        = "vim.mode"
	AttrModeAfter   = "vim.mode_after"
	AttrAction      = "vim.action"
	AttrCursorCount = "vim.cursor_count"
	AttrEditCount   = "batch.edit_count"
	AttrOverlapping = "batch.overlapping"
	AttrRemapBefore = "remap.before"
	AttrRemapAfter  = "remap.after"
	AttrRecursive   = "remap.recursive"
	AttrRegister    = "register.name"
)

// Span event names.
const (
	EventNoMatch        = "dispatch.no_match"
	EventWaitingForKeys = "dispatch.waiting"
	EventMovementFailed = "movement.failed"
)
