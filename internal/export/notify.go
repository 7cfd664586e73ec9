package export

// Progress is one status update from a running job. Delivery is ordered
// per sender.
type Progress struct {
	Percent int
	Message string
}

// Done is the terminal signal of a job. Success false always follows at
// least one Progress message describing the cause; Path points at the
// output file, which is left in place even on failure.
type Done struct {
	Success bool
	Message string
	Path    string
}

// Notifier carries job signals from the worker goroutine to whatever
// coordinates the UI. Channels are buffered so a slow listener cannot stall
// the compositing loop on progress updates; Done delivery blocks until
// observed.
type Notifier struct {
	progress chan Progress
	done     chan Done
}

// NewNotifier sizes the progress buffer for one update per input image.
func NewNotifier(buffer int) *Notifier {
	if buffer < 1 {
		buffer = 1
	}
	return &Notifier{
		progress: make(chan Progress, buffer),
		done:     make(chan Done, 1),
	}
}

// Progress returns the status update channel.
func (n *Notifier) Progress() <-chan Progress {
	return n.progress
}

// Done returns the terminal signal channel.
func (n *Notifier) Done() <-chan Done {
	return n.done
}

// SendProgress delivers a status update, dropping it if the listener has
// fallen behind rather than stalling the frame loop.
func (n *Notifier) SendProgress(p Progress) {
	select {
	case n.progress <- p:
	default:
	}
}

// SendDone delivers the terminal signal and closes both channels. Call at
// most once.
func (n *Notifier) SendDone(d Done) {
	n.done <- d
	close(n.done)
	close(n.progress)
}

// SendFailure reports the cause as a final progress message, then signals
// an unsuccessful Done.
func (n *Notifier) SendFailure(message string) {
	n.SendProgress(Progress{Percent: 100, Message: message})
	n.SendDone(Done{Success: false, Message: message})
}
