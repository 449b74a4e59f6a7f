package domain

// ID is used across domain entities.
type ID int64

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	TripScheduled  TripStatus = "scheduled"
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
	TripCancelled  TripStatus = "cancelled"
)

func (s TripStatus) Valid() bool {
	switch s {
	case TripScheduled, TripInProgress, TripCompleted, TripCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further ledger writes are accepted.
func (s TripStatus) Terminal() bool {
	return s == TripCompleted || s == TripCancelled
}

// AttendanceStatus is the ledger state of one student on one trip.
type AttendanceStatus string

const (
	AttendancePending  AttendanceStatus = "pending"
	AttendanceAttended AttendanceStatus = "attended"
	AttendanceAbsent   AttendanceStatus = "absent"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePending, AttendanceAttended, AttendanceAbsent:
		return true
	}
	return false
}

// StudentActive is the student lifecycle status counted in aggregates.
const StudentActive = "active"
