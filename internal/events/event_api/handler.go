package event_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"ms-events/internal/auth"
	"ms-events/internal/config"
	"ms-events/internal/events"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
)

const dateLayout = "2006-01-02"

type Handler struct {
	EventService *events.EventService
	Config       *config.Config
	Logger       *logger.Logger
}

func NewHandler(svc *events.EventService, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		EventService: svc,
		Config:       cfg,
		Logger:       log,
	}
}

// ImportEvent accepts raw event input, runs it through normalization,
// validation and duplicate detection, and returns the stored record.
func (h *Handler) ImportEvent(w http.ResponseWriter, r *http.Request) {
	var input events.EventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	event, err := h.EventService.ImportEvent(input)
	if err != nil {
		var verrs models.ValidationErrors
		if errors.As(err, &verrs) {
			utils.WriteJSON(w, http.StatusUnprocessableEntity,
				utils.ValidationErrorResponse("event is invalid", verrs))
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to import event", err.Error()))
		return
	}

	user := auth.UserID(r.Context())
	if user == "" {
		// With verification disabled a token may still carry attribution.
		if token, err := auth.ExtractTokenFromRequest(r); err == nil {
			user, _ = auth.SubjectFromToken(token)
		}
	}
	if user != "" && h.Logger != nil {
		h.Logger.LogEvent("IMPORT", event.ID, fmt.Sprintf("imported by %s", user))
	}

	message := "event created"
	if event.IsDuplicate() {
		message = fmt.Sprintf("event created and squashed into %s", event.DuplicateOfID)
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse(message, event))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	event, err := h.EventService.GetEvent(eventID)
	if err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("event not found", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("event found", event))
}

// ListEvents returns the events within the ?start=YYYY-MM-DD&end=YYYY-MM-DD
// window, or the future scope when no window is given.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	startParam := r.URL.Query().Get("start")
	endParam := r.URL.Query().Get("end")

	if startParam == "" && endParam == "" {
		eventList, err := h.EventService.ListFuture()
		if err != nil {
			utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to list events", err.Error()))
			return
		}
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("future events", eventList))
		return
	}

	loc := h.Config.Events.Timezone
	start, err := time.ParseInLocation(dateLayout, startParam, loc)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid start date", err.Error()))
		return
	}
	end := start
	if endParam != "" {
		end, err = time.ParseInLocation(dateLayout, endParam, loc)
		if err != nil {
			utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid end date", err.Error()))
			return
		}
	}

	eventList, err := h.EventService.ListWindow(start, end)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to list events", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("events in window", eventList))
}

// SquashEvent marks {eventID} as a duplicate of {canonicalID}.
func (h *Handler) SquashEvent(w http.ResponseWriter, r *http.Request) {
	duplicateID := chi.URLParam(r, "eventID")
	canonicalID := chi.URLParam(r, "canonicalID")

	event, err := h.EventService.SquashEvents(duplicateID, canonicalID)
	if err != nil {
		switch {
		case errors.Is(err, events.ErrCanonicalNotFound):
			utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("canonical event not found", err.Error()))
		case errors.Is(err, events.ErrSelfSquash), errors.Is(err, events.ErrDuplicateCycle):
			utils.WriteJSON(w, http.StatusConflict, utils.ErrorResponse("cannot squash", err.Error()))
		default:
			utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to squash", err.Error()))
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK,
		utils.SuccessResponse(fmt.Sprintf("event squashed into %s", event.DuplicateOfID), event))
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	var input events.EventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	event, err := h.EventService.UpdateEvent(eventID, input)
	if err != nil {
		var verrs models.ValidationErrors
		switch {
		case errors.Is(err, events.ErrEventLocked):
			utils.WriteJSON(w, http.StatusLocked, utils.ErrorResponse("event is locked", err.Error()))
		case errors.As(err, &verrs):
			utils.WriteJSON(w, http.StatusUnprocessableEntity,
				utils.ValidationErrorResponse("event is invalid", verrs))
		default:
			utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("failed to update event", err.Error()))
		}
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("event updated", event))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	if err := h.EventService.DeleteEvent(eventID); err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("failed to delete event", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("event deleted", nil))
}

func (h *Handler) LockEvent(w http.ResponseWriter, r *http.Request) {
	h.setLock(w, r, true)
}

func (h *Handler) UnlockEvent(w http.ResponseWriter, r *http.Request) {
	h.setLock(w, r, false)
}

func (h *Handler) setLock(w http.ResponseWriter, r *http.Request, locked bool) {
	eventID := chi.URLParam(r, "eventID")

	event, err := h.EventService.SetEventLock(eventID, locked)
	if err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("event not found", err.Error()))
		return
	}
	message := "event unlocked"
	if locked {
		message = "event locked"
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(message, event))
}

// ShareQR renders the event's public catalog URL as a QR code PNG.
func (h *Handler) ShareQR(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	event, err := h.EventService.GetEvent(eventID)
	if err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("event not found", err.Error()))
		return
	}

	shareURL := fmt.Sprintf("%s/event/%s", h.Config.Events.PublicBaseURL, event.ID)
	png, err := qrcode.Encode(shareURL, qrcode.Medium, 256)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to generate QR", err.Error()))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
