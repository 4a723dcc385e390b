package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// setupSignalHandler returns a channel that is closed on SIGINT or SIGTERM.
// The run loop checks it between runs; a rename sequence in progress is
// always allowed to finish so no container is left half-closed. The returned
// stop function releases the handler.
func setupSignalHandler(stderr io.Writer) (<-chan struct{}, func()) {
	shutdown := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	done := make(chan struct{})

	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			fmt.Fprintf(stderr, "\nReceived signal: %v\n", sig)
			fmt.Fprintf(stderr, "Finishing current run before stopping...\n")
			close(shutdown)
		case <-done:
		}
		signal.Stop(sigChan)
	}()

	return shutdown, func() { close(done) }
}

func interrupted(shutdown <-chan struct{}) bool {
	select {
	case <-shutdown:
		return true
	default:
		return false
	}
}
