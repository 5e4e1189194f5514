package agent

import "time"

// Run modes reported to a Recorder.
const (
	ModeBlocking = "blocking"
	ModeStream   = "stream"
)

// Recorder receives run and step measurements.
type Recorder interface {
	RunStarted(mode string)
	StepCompleted(mode string, duration time.Duration, failed bool)
	RunFinished(mode string, state State, steps int, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RunStarted(string) {}
func (nopRecorder) StepCompleted(string, time.Duration, bool) {}
func (nopRecorder) RunFinished(string, State, int, time.Duration) {}
