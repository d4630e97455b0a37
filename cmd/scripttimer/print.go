package main

import (
	"fmt"
	"io"

	"scripttimer/internal/scheduler"
)

func printEvent(w io.Writer, e scheduler.Event) {
	if e.Message == "" {
		return
	}
	fmt.Fprintf(w, "%s  %s\n", e.Time.Format("15:04:05"), e.Message)
}

// drainEvents prints whatever is already buffered without blocking.
func drainEvents(w io.Writer, events <-chan scheduler.Event) {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			printEvent(w, e)
		default:
			return
		}
	}
}
