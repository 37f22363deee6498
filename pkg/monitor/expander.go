package monitor

import (
	"time"

	"github.com/ogulcanaydogan/FareWatch/pkg/model"
)

// Each expanded route costs one provider call, so requests are capped before anything is fetched.
const (
	TrackCallBudget  = 6
	SearchCallBudget = 30
)

// Route is one (origin, destination, date) provider lookup.
type Route struct {
	Origin      model.AirportCode
	Destination model.AirportCode
	Date        time.Time
}

// ExpandTrack crosses every origin with every destination for a single departure date.
func ExpandTrack(origins, destinations []model.AirportCode, date time.Time) ([]Route, error) {
	return expand(origins, destinations, date, date, TrackCallBudget)
}

// ExpandSearch crosses every origin and destination with each date in [start, end].
func ExpandSearch(origins, destinations []model.AirportCode, start, end time.Time) ([]Route, error) {
	if model.DateOf(end).Before(model.DateOf(start)) {
		return nil, &model.ValidationError{Field: "date", Reason: "end date must not be before start date"}
	}
	return expand(origins, destinations, start, end, SearchCallBudget)
}

// expand orders routes origins outer, destinations inner, dates innermost.
func expand(origins, destinations []model.AirportCode, start, end time.Time, limit int) ([]Route, error) {
	if len(origins) == 0 {
		return nil, &model.ValidationError{Field: "origin", Reason: "at least one origin is required"}
	}
	if len(destinations) == 0 {
		return nil, &model.ValidationError{Field: "destination", Reason: "at least one destination is required"}
	}
	for _, c := range append(append([]model.AirportCode{}, origins...), destinations...) {
		if !c.Valid() {
			return nil, &model.ValidationError{Field: "airport", Reason: string(c) + " is not a 3-letter airport code"}
		}
	}

	start = model.DateOf(start)
	days := model.DaysBetween(start, end) + 1
	calls := len(origins) * len(destinations) * days
	if calls > limit {
		return nil, &model.BudgetError{Calls: calls, Limit: limit}
	}

	routes := make([]Route, 0, calls)
	for _, o := range origins {
		for _, d := range destinations {
			for i := range days {
				routes = append(routes, Route{Origin: o, Destination: d, Date: start.AddDate(0, 0, i)})
			}
		}
	}
	return routes, nil
}
