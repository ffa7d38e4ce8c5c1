package main

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// spinner shows a terminal loading animation while Chrome starts up
type spinner struct {
	out     io.Writer
	chars   []string
	delay   time.Duration
	message string
	end     chan bool
	wg      sync.WaitGroup
}

func newSpinner(out io.Writer) *spinner {
	return &spinner{
		out:   out,
		chars: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		delay: 100 * time.Millisecond,
	}
}

func (s *spinner) start(message string) {
	s.message = message
	s.end = make(chan bool, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.delay)
		defer ticker.Stop()

		for i := 0; ; i++ {
			fmt.Fprintf(s.out, "\r%s %s", s.chars[i%len(s.chars)], s.message)

			select {
			case ok := <-s.end:
				fmt.Fprintf(s.out, "\r%s %s\n", boolToEmoji(ok), s.message)
				return
			case <-ticker.C:
			}
		}
	}()
}

// stop ends the animation, marking the operation as succeeded or failed
func (s *spinner) stop(ok bool) {
	s.end <- ok
	s.wg.Wait()
}
