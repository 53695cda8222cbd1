package hal

import (
	"sync"
	"time"
)

// blinkScheduler owns one cancellable toggling goroutine per LED name.
// Starting a blink on an LED that is already blinking replaces the
// prior task; every toggle goes through Chip.Write so it is
// serialized with the rest of the chip's traffic.
type blinkScheduler struct {
	chip *Chip

	mu    sync.Mutex
	tasks map[string]*blinkTask
}

type blinkTask struct {
	cancel func()
	done   chan struct{}
}

func newBlinkScheduler(c *Chip) *blinkScheduler {
	return &blinkScheduler{chip: c, tasks: make(map[string]*blinkTask)}
}

func (s *blinkScheduler) start(led string, pin int, interval time.Duration) error {
	s.stop(led)

	stopCh := make(chan struct{})
	done := make(chan struct{})
	task := &blinkTask{
		cancel: func() { close(stopCh) },
		done:   done,
	}

	s.mu.Lock()
	s.tasks[led] = task
	s.mu.Unlock()

	go func() {
		defer close(done)
		level := High
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				if err := s.chip.Write(pin, level); err != nil {
					s.chip.log.Warn().Err(err).Str("led", led).Msg("blink toggle failed")
					return
				}
				if level == High {
					level = Low
				} else {
					level = High
				}
			}
		}
	}()

	return nil
}

// stop cancels led's blink task, if any, and waits for its goroutine
// to exit — at most one interval, per SPEC_FULL.md §5.
func (s *blinkScheduler) stop(led string) {
	s.mu.Lock()
	task, ok := s.tasks[led]
	if ok {
		delete(s.tasks, led)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	task.cancel()
	<-task.done
}

func (s *blinkScheduler) stopAll() {
	s.mu.Lock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	s.mu.Unlock()

	for _, name := range names {
		s.stop(name)
	}
}
