package core

import "slices"

// ApprovalQueue holds high-risk commands awaiting a decision, oldest first.
// It is not safe for concurrent use on its own; the Controller guards it.
type ApprovalQueue struct {
	items []Command
}

// Enqueue appends cmd to the tail.
func (q *ApprovalQueue) Enqueue(cmd Command) {
	q.items = append(q.items, cmd)
}

// Peek returns the head without removing it.
func (q *ApprovalQueue) Peek() (Command, bool) {
	if len(q.items) == 0 {
		return Command{}, false
	}
	return q.items[0], true
}

// Pop removes and returns the head.
func (q *ApprovalQueue) Pop() (Command, bool) {
	if len(q.items) == 0 {
		return Command{}, false
	}
	head := q.items[0]
	q.items[0] = Command{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return head, true
}

// Len returns the number of pending commands.
func (q *ApprovalQueue) Len() int {
	return len(q.items)
}

// Snapshot returns a copy of the pending commands in queue order.
func (q *ApprovalQueue) Snapshot() []Command {
	return slices.Clone(q.items)
}
