package application

import (
	"os"
	"os/signal"
	"syscall"

	"tarkeep/internal/logging"
)

// ShutdownHandler runs a cleanup function when the process receives SIGINT or
// SIGTERM. Cancellation must still release the run lock before termination,
// so the handler exits only after cleanup has run.
type ShutdownHandler struct {
	logger  *logging.Logger
	sigChan chan os.Signal
	done    chan struct{}
}

// NewShutdownHandler creates a handler; Arm installs it
func NewShutdownHandler(logger *logging.Logger) *ShutdownHandler {
	return &ShutdownHandler{logger: logger}
}

// Arm installs the signal handler with the given cleanup function
func (sh *ShutdownHandler) Arm(cleanup func()) {
	sh.sigChan = make(chan os.Signal, 1)
	sh.done = make(chan struct{})
	signal.Notify(sh.sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig, ok := <-sh.sigChan:
			if !ok {
				return
			}
			sh.logger.Errorf("Received signal %s, shutting down", sig)
			cleanup()
			os.Exit(1)
		case <-sh.done:
		}
	}()
}

// Disarm removes the signal handler once the lock window has closed
func (sh *ShutdownHandler) Disarm() {
	if sh.sigChan == nil {
		return
	}
	signal.Stop(sh.sigChan)
	close(sh.done)
	sh.sigChan = nil
}
