package core

// DefaultHistorySize is the number of log lines the controller keeps.
const DefaultHistorySize = 300

// History is a bounded log of transcript lines. When full, appending drops
// the oldest line. It is not safe for concurrent use on its own.
type History struct {
	lines []string
	start int
	count int
}

// NewHistory creates a log holding at most size lines.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{lines: make([]string, size)}
}

// Append adds line, evicting the oldest line when full.
func (h *History) Append(line string) {
	capacity := len(h.lines)
	if h.count < capacity {
		h.lines[(h.start+h.count)%capacity] = line
		h.count++
		return
	}
	h.lines[h.start] = line
	h.start = (h.start + 1) % capacity
}

// Len returns the number of stored lines.
func (h *History) Len() int { return h.count }

// Cap returns the maximum number of stored lines.
func (h *History) Cap() int { return len(h.lines) }

// Lines returns the stored lines, oldest first.
func (h *History) Lines() []string {
	out := make([]string, h.count)
	for i := range h.count {
		out[i] = h.lines[(h.start+i)%len(h.lines)]
	}
	return out
}
