package domain

// AttendanceCounts is the per-trip aggregate over active students.
type AttendanceCounts struct {
	Total    int `json:"total"`
	Attended int `json:"attended"`
	Absent   int `json:"absent"`
}

// Remaining is total - attended - absent, never negative.
func (c AttendanceCounts) Remaining() int {
	r := c.Total - c.Attended - c.Absent
	if r < 0 {
		return 0
	}
	return r
}

// Progress reshapes the aggregate by trip direction: pickup trips report the
// attended count as PickedUp, drop-off trips as DroppedOff.
type Progress struct {
	Total      int `json:"total"`
	PickedUp   int `json:"pickedUp"`
	DroppedOff int `json:"droppedOff"`
	Absent     int `json:"absent"`
	Remaining  int `json:"remaining"`
}

func ProgressFor(t TripType, c AttendanceCounts) Progress {
	p := Progress{
		Total:     c.Total,
		Absent:    c.Absent,
		Remaining: c.Remaining(),
	}
	if t == TripDropoff {
		p.DroppedOff = c.Attended
	} else {
		p.PickedUp = c.Attended
	}
	return p
}
