//go:build unix

package syncer

import (
	"os"
	"os/signal"
	"syscall"
)

// platformTrigger fires when the process receives SIGUSR1, which lets a supervisor ask for
// a sync while nobody is using the app.
func platformTrigger() (<-chan struct{}, func()) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)

	out := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-sig:
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, func() {
		signal.Stop(sig)
		close(done)
	}
}
