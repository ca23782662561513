package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"stridelog/internal/audit"
)

type auditEventsResponse struct {
	Events []audit.Event `json:"events"`
	Count  int           `json:"count"`
}

func (a *API) handleAuditEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := auditFilterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := a.audit.Query(r.Context(), filter)
	if err != nil {
		if errors.Is(err, audit.ErrInvalidFilter) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.log.Error().Err(err).Msg("audit query failed")
		writeError(w, http.StatusInternalServerError, "audit query failed")
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, auditEventsResponse{Events: events, Count: len(events)})
}

func (a *API) handleAuditStatistics(w http.ResponseWriter, r *http.Request) {
	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = string(audit.WindowDay)
	}

	stats, err := a.audit.Statistics(r.Context(), timeframe)
	if err != nil {
		if errors.Is(err, audit.ErrInvalidFilter) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.log.Error().Err(err).Msg("audit statistics failed")
		writeError(w, http.StatusInternalServerError, "audit statistics failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func auditFilterFromQuery(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	filter := audit.Filter{
		ActorID:   q.Get("actor_id"),
		Action:    q.Get("action"),
		Resource:  q.Get("resource"),
		Outcome:   audit.Outcome(q.Get("outcome")),
		RiskLevel: audit.RiskLevel(q.Get("risk_level")),
	}

	var err error
	if filter.Start, err = parseQueryTime(q.Get("start")); err != nil {
		return audit.Filter{}, err
	}
	if filter.End, err = parseQueryTime(q.Get("end")); err != nil {
		return audit.Filter{}, err
	}
	if filter.Limit, err = parseQueryInt(q.Get("limit")); err != nil {
		return audit.Filter{}, err
	}
	if filter.Offset, err = parseQueryInt(q.Get("offset")); err != nil {
		return audit.Filter{}, err
	}
	return filter, nil
}

func parseQueryTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("timestamps must be RFC 3339")
	}
	return t, nil
}

func parseQueryInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("limit and offset must be integers")
	}
	return n, nil
}
