//go:build !unix

package syncer

// No platform trigger here. The nil channel never fires, so the timer and the
// connectivity changes are the only stimuli.
func platformTrigger() (<-chan struct{}, func()) {
	return nil, func() {}
}
