package task

// noopWaker is handed to tasks run by SimpleExecutor.
var noopWaker Waker

// SimpleExecutor polls all of its tasks in a loop until every one of them is
// complete. It ignores wakers entirely and busy-polls pending tasks, which
// makes it useful for testing futures before interrupts are available.
type SimpleExecutor struct {
	tasks []*Task
}

// NewSimpleExecutor returns an empty SimpleExecutor.
func NewSimpleExecutor() *SimpleExecutor {
	return &SimpleExecutor{}
}

// Spawn appends t to the run queue.
func (e *SimpleExecutor) Spawn(t *Task) {
	e.tasks = append(e.tasks, t)
}

// Run polls the queued tasks in FIFO order until all of them return Ready.
func (e *SimpleExecutor) Run() {
	ctx := Context{waker: &noopWaker}
	for len(e.tasks) > 0 {
		t := e.tasks[0]
		e.tasks[0] = nil
		e.tasks = e.tasks[1:]

		if t.Poll(&ctx) == Pending {
			e.tasks = append(e.tasks, t)
		}
	}
}
