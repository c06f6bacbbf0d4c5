package kmain

import (
	"gopherkern/kernel/kfmt"
	"gopherkern/kernel/task"
)

// valueFuture is a future that resolves to a constant value.
type valueFuture struct {
	value int
}

func (f *valueFuture) Poll(*task.Context) task.Poll {
	return task.Ready
}

func asyncNumber() *valueFuture {
	return &valueFuture{value: 42}
}

// exampleTask waits for asyncNumber and prints its result.
func exampleTask() task.Future {
	number := asyncNumber()
	return task.FutureFunc(func(ctx *task.Context) task.Poll {
		if number.Poll(ctx) == task.Pending {
			return task.Pending
		}

		kfmt.Printf("async number: %d\n", number.value)
		return task.Ready
	})
}
