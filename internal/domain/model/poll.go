package model

// PollHandle exists only while its originating request is unresolved.
type PollHandle struct {
	RequestID string
	URL       string
}

type PollState string

const (
	PollPending  PollState = "pending"
	PollReady    PollState = "ready"
	PollTimedOut PollState = "timed_out"
	PollFailed   PollState = "failed"
)

func (s PollState) Terminal() bool { return s != PollPending }

// PollResult is the terminal state of a polling run.
type PollResult struct {
	State      PollState
	Attempts   int
	LastStatus int
	Archive    []byte // set when State == PollReady
	Body       string // response text when State == PollFailed
}

// Submission is the answer to an inference POST: exactly one of Archive
// (completed synchronously) or Handle (accepted, poll for it) is set.
type Submission struct {
	Archive []byte
	Handle  *PollHandle
}

func (s Submission) Pending() bool { return s.Handle != nil }
