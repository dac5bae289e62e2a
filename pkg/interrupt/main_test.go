package interrupt

import (
	"testing"
	"time"
)

func TestRequestRunsHandlersLIFO(t *testing.T) {
	var order []int
	AddHandler(func() { order = append(order, 1) })
	AddHandler(func() { order = append(order, 2) })
	Request()
	select {
	case <-HandlersDone:
	case <-time.After(5 * time.Second):
		t.Fatal("handlers did not run\n" + GoroutineDump())
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("handlers ran in order %v", order)
	}
	if !Requested() {
		t.Fatal("Requested should be true")
	}
	// a second request and a late handler do not block
	Request()
	AddHandler(func() { t.Error("late handler ran") })
}
