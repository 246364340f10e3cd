package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/medora/clinic-scheduling/internal/appointment"
	"github.com/medora/clinic-scheduling/internal/availability"
	"github.com/medora/clinic-scheduling/internal/schedule"
	"github.com/medora/clinic-scheduling/internal/timeoff"
)

func getScheduleHandler(store *schedule.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		ws, err := store.GetSchedule(r.Context(), doctorID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toSchedulePayload(ws))
	}
}

// Mutations go through the service rather than straight to the store so the
// availability cache is flushed for the doctor in the same call.
func setScheduleHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		var payload WeeklySchedulePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		ws, ok := payload.toDomain()
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_weekday", "schedule keys must be lowercase weekday names")
			return
		}

		if err := svc.SetSchedule(r.Context(), doctorID, ws); err != nil {
			if errors.Is(err, schedule.ErrInvalidWindow) {
				writeError(w, http.StatusUnprocessableEntity, "invalid_working_window", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toSchedulePayload(ws))
	}
}

func addTimeOffHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		var req TimeOffRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		startDate, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_date", "start_date must be formatted YYYY-MM-DD")
			return
		}

		endDate, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_date", "end_date must be formatted YYYY-MM-DD")
			return
		}

		key, err := svc.AddTimeOff(r.Context(), doctorID, startDate, endDate, req.Reason)
		if err != nil {
			if errors.Is(err, timeoff.ErrInvalidRange) {
				writeError(w, http.StatusUnprocessableEntity, "invalid_date_range", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, TimeOffResponse{
			Key:       key,
			StartDate: schedule.DateOnly(startDate).Format("2006-01-02"),
			EndDate:   schedule.DateOnly(endDate).Format("2006-01-02"),
			Reason:    req.Reason,
		})
	}
}

func cancelTimeOffHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		key, ok := parseIDParam(w, r, "key")
		if !ok {
			return
		}

		if err := svc.CancelTimeOff(r.Context(), doctorID, key); err != nil {
			if errors.Is(err, timeoff.ErrIntervalNotFound) {
				writeError(w, http.StatusNotFound, "time_off_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listTimeOffHandler(registry *timeoff.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		intervals, err := registry.ListIntervals(r.Context(), doctorID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]TimeOffResponse, 0, len(intervals))
		for _, iv := range intervals {
			resp = append(resp, toTimeOffResponse(iv))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func availabilityHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date query parameter must be formatted YYYY-MM-DD")
			return
		}

		slots, err := svc.Availability(r.Context(), doctorID, date)
		if err != nil {
			if errors.Is(err, appointment.ErrDoctorNotFound) {
				writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		if slots == nil {
			slots = []availability.Slot{}
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			DoctorID: doctorID,
			Date:     schedule.DateOnly(date).Format("2006-01-02"),
			Slots:    slots,
		})
	}
}
