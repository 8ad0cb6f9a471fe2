package signal

import (
	"os"
	"os/signal"
	"syscall"
)

// ShutdownRequestChannel is sent to by any component (e.g. the RPC server,
// on receiving a Stop request) that wants to request a graceful shutdown
// without having received an OS interrupt itself.
var ShutdownRequestChannel = make(chan struct{})

// InterruptListener returns a channel that closes once an OS interrupt
// signal or a shutdown request is received. A second signal forces an
// immediate exit, mirroring the common double-Ctrl-C convention.
func InterruptListener() <-chan struct{} {
	result := make(chan struct{})
	go func() {
		interruptChannel := make(chan os.Signal, 1)
		signal.Notify(interruptChannel, os.Interrupt, syscall.SIGTERM)

		select {
		case sig := <-interruptChannel:
			kasdLog.Infof("Received signal (%s), shutting down...", sig)
		case <-ShutdownRequestChannel:
			kasdLog.Infof("Shutdown requested, shutting down...")
		}
		close(result)

		// A second interrupt forces an immediate, ungraceful exit.
		go func() {
			<-interruptChannel
			kasdLog.Warnf("Received interrupt again, forcing shutdown")
			os.Exit(1)
		}()
	}()
	return result
}
