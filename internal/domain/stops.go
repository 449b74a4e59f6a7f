package domain

// StopStatus is the display state of a route stop for the driver.
type StopStatus string

const (
	StopPending   StopStatus = "pending"
	StopCurrent   StopStatus = "current"
	StopCompleted StopStatus = "completed"
)

// StopLoad is how many active students a stop has on a trip and how many of
// them have left pending.
type StopLoad struct {
	Assigned  int
	Processed int
}

// Done reports whether every assigned student has been attended or marked
// absent. A stop with nobody assigned is done.
func (l StopLoad) Done() bool {
	return l.Processed >= l.Assigned
}

// InferStopStatuses walks stops in route order. At most one stop is current:
// the first one not fully processed on an in-progress trip. Everything before
// it is completed and everything after it pending.
func InferStopStatuses(status TripStatus, loads []StopLoad) []StopStatus {
	out := make([]StopStatus, len(loads))
	switch status {
	case TripCompleted:
		for i := range out {
			out[i] = StopCompleted
		}
		return out
	case TripInProgress:
	default:
		for i := range out {
			out[i] = StopPending
		}
		return out
	}

	seenCurrent := false
	for i, l := range loads {
		switch {
		case seenCurrent:
			out[i] = StopPending
		case l.Done():
			out[i] = StopCompleted
		default:
			out[i] = StopCurrent
			seenCurrent = true
		}
	}
	return out
}
