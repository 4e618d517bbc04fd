package updates

// State is the outcome of the last update check as shown by the applet.
type State int

const (
	StateUnknown State = iota
	StateHidden
	StateVisibleNormal
	StateVisibleUrgent
	StateError
)

func (s State) String() string {
	switch s {
	case StateHidden:
		return "hidden"
	case StateVisibleNormal:
		return "visible-normal"
	case StateVisibleUrgent:
		return "visible-urgent"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Icon names used by the update applet.
const (
	IconAvailable = "software-update-available"
	IconUrgent    = "software-update-urgent"
	IconError     = "dialog-error"
	IconOutdated  = "dialog-warning"
)
