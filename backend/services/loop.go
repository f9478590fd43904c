package services

import (
	"sync"
	"time"
)

// tickerLoop runs fn on every tick of a time.Ticker until stopped.
// stop blocks until the loop goroutine has exited, so fn is never running
// or about to run once stop returns. fn must not call stop.
type tickerLoop struct {
	interval time.Duration
	fn       func()

	mu       sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

func newTickerLoop(interval time.Duration, fn func()) *tickerLoop {
	return &tickerLoop{interval: interval, fn: fn}
}

// start launches the loop. It reports false if the loop was already running.
func (l *tickerLoop) start() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopChan != nil {
		return false
	}
	l.stopChan = make(chan struct{})
	l.done = make(chan struct{})
	go l.run(l.stopChan, l.done)
	return true
}

// stop halts the loop and waits for it. It reports false if it was not running.
func (l *tickerLoop) stop() bool {
	l.mu.Lock()
	if l.stopChan == nil {
		l.mu.Unlock()
		return false
	}
	close(l.stopChan)
	done := l.done
	l.stopChan = nil
	l.done = nil
	l.mu.Unlock()

	<-done
	return true
}

func (l *tickerLoop) running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopChan != nil
}

func (l *tickerLoop) run(stopChan <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopChan:
			return
		case <-ticker.C:
			// select picks randomly when both are ready
			select {
			case <-stopChan:
				return
			default:
			}
			l.fn()
		}
	}
}
