package prover

// DefaultProgressSteps is the number of progress updates the command line
// asks for over one proof.
const DefaultProgressSteps = 20

// ProgressFunc receives the number of squarings completed so far. It runs
// on the squaring goroutine, so a slow sink slows the proof down.
type ProgressFunc func(done uint64)

// ChannelProgress returns a sink that forwards counts to ch without
// blocking. Updates are dropped while ch is full.
func ChannelProgress(ch chan<- uint64) ProgressFunc {
	return func(done uint64) {
		select {
		case ch <- done:
		default:
		}
	}
}

// ProgressInterval returns the cadence that yields about steps updates
// over t squarings. Zero steps disables progress.
func ProgressInterval(t, steps uint64) uint64 {
	if steps == 0 {
		return 0
	}
	if t == 0 {
		return 1
	}
	return max((t+steps-1)/steps, 1)
}

// shouldReport implements the progress cadence: every multiple of interval
// plus the final squaring.
func shouldReport(done, total, interval uint64) bool {
	return interval != 0 && (done == total || done%interval == 0)
}
