package services

import (
	"context"
	"strconv"

	"schoolbus/internal/domain"
	"schoolbus/internal/events"
	"schoolbus/internal/utils"

	"go.uber.org/zap"
)

// Recorder receives state transitions and failures for metrics.
type Recorder interface {
	TripTransition(to domain.TripStatus)
	AttendanceTransition(from, to domain.AttendanceStatus)
	OperationFailed(op, kind string)
}

type nopRecorder struct{}

func (nopRecorder) TripTransition(domain.TripStatus) {}
func (nopRecorder) AttendanceTransition(domain.AttendanceStatus, domain.AttendanceStatus) {}
func (nopRecorder) OperationFailed(string, string) {}

func recorderOr(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

// failed logs a refused or broken operation and counts it. Expected refusals
// (validation, not found, conflict) are logged at info.
func failed(r Recorder, requestID, module, op string, err error) error {
	kind := domain.ErrorKind(err)
	recorderOr(r).OperationFailed(op, kind)
	if kind == "internal" {
		utils.LogWarn(requestID, module, op, err)
	} else {
		utils.LogEvent(requestID, module, op+"_refused", err.Error(), zap.String("kind", kind))
	}
	return err
}

// publish sends ev after the transaction committed. A broker failure is
// logged and never reaches the caller.
func publish(ctx context.Context, p events.Publisher, requestID string, ev events.Event) {
	if p == nil {
		return
	}
	ev.RequestID = requestID
	if err := p.Publish(ctx, ev); err != nil {
		utils.LogWarn(requestID, "events", "publish_"+ev.Kind, err,
			zap.String("trip_id", strconv.FormatInt(int64(ev.TripID), 10)))
	}
}
