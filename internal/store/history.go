package store

// history is a bounded list of committed states with a cursor.
//
// entries[cursor] is the state the store currently holds. Recording a new
// state drops everything after the cursor, then evicts the oldest entry when
// the limit is exceeded.
type history[S any] struct {
	entries []S
	cursor  int
	limit   int
}

func newHistory[S any](limit int, initial S) *history[S] {
	return &history[S]{
		entries: []S{initial},
		limit:   limit,
	}
}

func (h *history[S]) record(state S) {
	h.entries = append(h.entries[:h.cursor+1], state)
	h.cursor = len(h.entries) - 1
	h.trim()
}

func (h *history[S]) trim() {
	if over := len(h.entries) - h.limit; over > 0 {
		clear(h.entries[:over])
		h.entries = h.entries[over:]
		h.cursor = max(h.cursor-over, 0)
	}
}

func (h *history[S]) setLimit(limit int) {
	h.limit = limit
	h.trim()
}

func (h *history[S]) canUndo() bool { return h.cursor > 0 }

func (h *history[S]) canRedo() bool { return h.cursor < len(h.entries)-1 }

func (h *history[S]) undo() (S, bool) {
	if !h.canUndo() {
		var zero S
		return zero, false
	}
	h.cursor--
	return h.entries[h.cursor], true
}

func (h *history[S]) redo() (S, bool) {
	if !h.canRedo() {
		var zero S
		return zero, false
	}
	h.cursor++
	return h.entries[h.cursor], true
}

func (h *history[S]) moveTo(i int) (S, bool) {
	if i < 0 || i >= len(h.entries) {
		var zero S
		return zero, false
	}
	h.cursor = i
	return h.entries[i], true
}

func (h *history[S]) list() []S {
	return append([]S(nil), h.entries...)
}
