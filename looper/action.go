package looper

// PendingAction is the value held by the controller's one-slot register of
// quantized actions. Exactly one is live at a time; it executes at the next
// loop boundary and resets to NoAction, except StartRecord which leaves
// StopRecord armed so that recording stops exactly one loop later.
type PendingAction uint8

const (
	NoAction PendingAction = iota
	StartRecord
	ToggleMuteTrack
	ToggleSoloTrack
	UnmuteAllTracks
	StopRecord
)

// Protected reports whether the action may only be overwritten by a
// preempting request. A non-preempting SetPending against a protected
// action is silently dropped.
func (a PendingAction) Protected() bool {
	return a >= StopRecord
}

func (a PendingAction) String() string {
	switch a {
	case NoAction:
		return "none"
	case StartRecord:
		return "start-record"
	case ToggleMuteTrack:
		return "toggle-mute"
	case ToggleSoloTrack:
		return "toggle-solo"
	case UnmuteAllTracks:
		return "unmute-all"
	case StopRecord:
		return "stop-record"
	}
	return "invalid"
}
