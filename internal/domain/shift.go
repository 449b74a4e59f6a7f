package domain

import (
	"fmt"
	"strings"
	"time"
)

// TripType is the direction of a bus run.
type TripType string

// DayPart is the session of the school day a trip runs in.
type DayPart string

const (
	TripPickup  TripType = "pickup"
	TripDropoff TripType = "dropoff"

	Morning   DayPart = "morning"
	Afternoon DayPart = "afternoon"
)

// noonHour splits the day: earlier hours are morning.
const noonHour = 12

// Shift is a canonical (TripType, DayPart) pair.
type Shift struct {
	Type    TripType `json:"type"`
	Session DayPart  `json:"session"`
}

// Every valid shift. The correspondence is one-to-one, so both lookups below
// are derived from this table.
var shifts = []Shift{
	{Type: TripPickup, Session: Morning},
	{Type: TripDropoff, Session: Afternoon},
}

func sessionFor(t TripType) (DayPart, bool) {
	for _, s := range shifts {
		if s.Type == t {
			return s.Session, true
		}
	}
	return "", false
}

func typeFor(p DayPart) (TripType, bool) {
	for _, s := range shifts {
		if s.Session == p {
			return s.Type, true
		}
	}
	return "", false
}

// ParseTripType normalizes a type parameter. Empty input yields "".
func ParseTripType(raw string) (TripType, error) {
	v := TripType(strings.ToLower(strings.TrimSpace(raw)))
	if v == "" {
		return "", nil
	}
	if _, ok := sessionFor(v); !ok {
		return "", ValidationError{Field: "type", Msg: fmt.Sprintf("unknown trip type %q", raw)}
	}
	return v, nil
}

// ParseDayPart normalizes a session parameter. Empty input yields "".
func ParseDayPart(raw string) (DayPart, error) {
	v := DayPart(strings.ToLower(strings.TrimSpace(raw)))
	if v == "" {
		return "", nil
	}
	if _, ok := typeFor(v); !ok {
		return "", ValidationError{Field: "session", Msg: fmt.Sprintf("unknown session %q", raw)}
	}
	return v, nil
}

// DayPartAt derives the session from the local wall-clock hour of now.
func DayPartAt(now time.Time) DayPart {
	if now.Hour() < noonHour {
		return Morning
	}
	return Afternoon
}

// ResolveShift maps an optional explicit type and session (empty means not
// given) or the wall clock to a canonical shift. A mismatching pair is a
// validation error, never corrected.
func ResolveShift(explicitType TripType, explicitSession DayPart, now time.Time) (Shift, error) {
	switch {
	case explicitType == "" && explicitSession == "":
		session := DayPartAt(now)
		t, _ := typeFor(session)
		return Shift{Type: t, Session: session}, nil

	case explicitSession == "":
		session, ok := sessionFor(explicitType)
		if !ok {
			return Shift{}, ValidationError{Field: "type", Msg: fmt.Sprintf("unknown trip type %q", explicitType)}
		}
		return Shift{Type: explicitType, Session: session}, nil

	case explicitType == "":
		t, ok := typeFor(explicitSession)
		if !ok {
			return Shift{}, ValidationError{Field: "session", Msg: fmt.Sprintf("unknown session %q", explicitSession)}
		}
		return Shift{Type: t, Session: explicitSession}, nil
	}

	s := Shift{Type: explicitType, Session: explicitSession}
	if err := s.Validate(); err != nil {
		return Shift{}, err
	}
	return s, nil
}

// Validate checks the type/session correspondence.
func (s Shift) Validate() error {
	want, ok := sessionFor(s.Type)
	if !ok {
		return ValidationError{Field: "type", Msg: fmt.Sprintf("unknown trip type %q", s.Type)}
	}
	if _, ok := typeFor(s.Session); !ok {
		return ValidationError{Field: "session", Msg: fmt.Sprintf("unknown session %q", s.Session)}
	}
	if want != s.Session {
		return ValidationError{
			Field: "session",
			Msg:   fmt.Sprintf("%s trips run in the %s, not the %s", s.Type, want, s.Session),
		}
	}
	return nil
}

// Label is the human-readable name used in messages and summaries.
func (s Shift) Label() string {
	switch s {
	case Shift{Type: TripPickup, Session: Morning}:
		return "Morning pickup"
	case Shift{Type: TripDropoff, Session: Afternoon}:
		return "Afternoon drop-off"
	}
	return fmt.Sprintf("%s %s", s.Session, s.Type)
}

// SessionRank orders sessions within a day.
func SessionRank(p DayPart) int {
	if p == Morning {
		return 0
	}
	return 1
}
