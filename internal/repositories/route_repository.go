package repositories

import (
	"context"
	"fmt"

	intconfig "schoolbus/internal/config"
	intdb "schoolbus/internal/db"
	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
)

// RouteRepository reads routes, stops and buses. Those tables belong to other
// collaborators; the engine never writes them.
type RouteRepository struct {
	Q intdb.Querier
}

func (r RouteRepository) q() intdb.Querier {
	if r.Q != nil {
		return r.Q
	}
	return intconfig.DB
}

func (r RouteRepository) GetRoute(ctx context.Context, id domain.ID) (models.Route, error) {
	var rt models.Route
	err := r.q().QueryRowContext(ctx, intdb.Rebind(`SELECT id, name FROM routes WHERE id=? LIMIT 1`), id).
		Scan(&rt.ID, &rt.Name)
	return rt, err
}

func (r RouteRepository) GetBus(ctx context.Context, id domain.ID) (models.Bus, error) {
	var b models.Bus
	err := r.q().QueryRowContext(ctx, intdb.Rebind(`SELECT id, plate_number, COALESCE(code, '') FROM buses WHERE id=? LIMIT 1`), id).
		Scan(&b.ID, &b.PlateNumber, &b.Code)
	return b, err
}

// ListStops returns the route's stops in order.
func (r RouteRepository) ListStops(ctx context.Context, routeID domain.ID) ([]models.RouteStop, error) {
	rows, err := r.q().QueryContext(ctx, intdb.Rebind(`
		SELECT id, route_id, name, stop_order
		FROM route_stops
		WHERE route_id=?
		ORDER BY stop_order, id
	`), routeID)
	if err != nil {
		return nil, fmt.Errorf("list stops route=%d: %w", routeID, err)
	}
	defer rows.Close()

	out := []models.RouteStop{}
	for rows.Next() {
		var s models.RouteStop
		if err := rows.Scan(&s.ID, &s.RouteID, &s.Name, &s.StopOrder); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// StopLoads returns the route's stops in order, each with the number of
// active students on the trip assigned to it and how many of them have left
// pending.
func (r RouteRepository) StopLoads(ctx context.Context, tripID, routeID domain.ID, tripType domain.TripType) ([]models.StopLoad, error) {
	rows, err := r.q().QueryContext(ctx, intdb.Rebind(`
		SELECT rs.id, rs.route_id, rs.name, rs.stop_order,
		       COUNT(ts.student_id),
		       COALESCE(SUM(CASE WHEN ts.status <> 'pending' THEN 1 ELSE 0 END), 0)
		FROM route_stops rs
		LEFT JOIN (students s
		           JOIN trip_students ts ON ts.student_id = s.id AND ts.trip_id = ?)
		       ON s.`+stopColumn(tripType)+` = rs.id AND s.status = ?
		WHERE rs.route_id=?
		GROUP BY rs.id, rs.route_id, rs.name, rs.stop_order
		ORDER BY rs.stop_order, rs.id
	`), tripID, domain.StudentActive, routeID)
	if err != nil {
		return nil, fmt.Errorf("stop loads trip=%d: %w", tripID, err)
	}
	defer rows.Close()

	out := []models.StopLoad{}
	for rows.Next() {
		var l models.StopLoad
		if err := rows.Scan(&l.ID, &l.RouteID, &l.Name, &l.StopOrder, &l.Assigned, &l.Processed); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
