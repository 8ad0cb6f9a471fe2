package locks

import (
	"sync"
	"sync/atomic"
)

type waitGroup struct {
	counter  int64
	waitCond *sync.Cond
}

func newWaitGroup() *waitGroup {
	return &waitGroup{
		waitCond: sync.NewCond(&sync.Mutex{}),
	}
}

func (wg *waitGroup) add() {
	atomic.AddInt64(&wg.counter, 1)
}

func (wg *waitGroup) done() {
	counter := atomic.AddInt64(&wg.counter, -1)
	if counter == 0 {
		wg.waitCond.L.Lock()
		wg.waitCond.Broadcast()
		wg.waitCond.L.Unlock()
	}
	if counter < 0 {
		panic("negative values for wg.counter are not allowed. This was likely caused by calling done() before add()")
	}
}

func (wg *waitGroup) wait() {
	wg.waitCond.L.Lock()
	defer wg.waitCond.L.Unlock()
	for atomic.LoadInt64(&wg.counter) != 0 {
		wg.waitCond.Wait()
	}
}

// WaitGroup is a sync.WaitGroup whose Wait can be composed with
// ReceiveFromChanWhenDone, letting a shutdown sequence select between it
// and other completion signals instead of blocking unconditionally.
type WaitGroup struct {
	wg waitGroup
}

// NewWaitGroup returns an empty WaitGroup.
func NewWaitGroup() *WaitGroup {
	return &WaitGroup{wg: *newWaitGroup()}
}

// Add increments the WaitGroup counter.
func (wg *WaitGroup) Add() { wg.wg.add() }

// Done decrements the WaitGroup counter.
func (wg *WaitGroup) Done() { wg.wg.done() }

// Wait blocks until the counter returns to zero.
func (wg *WaitGroup) Wait() { wg.wg.wait() }

// WaitChan returns a channel that closes once the counter returns to zero.
func (wg *WaitGroup) WaitChan() <-chan struct{} {
	return ReceiveFromChanWhenDone(wg.Wait)
}
