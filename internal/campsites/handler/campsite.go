package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"basecamp/internal/campsites/service"
	httputil "basecamp/pkg/http"
	"basecamp/pkg/logger"
	"basecamp/pkg/model"
)

type CampsiteHandler struct {
	service service.CampsiteService
	log     *logger.Logger
}

func NewCampsiteHandler(service service.CampsiteService, log *logger.Logger) *CampsiteHandler {
	return &CampsiteHandler{
		service: service,
		log:     log,
	}
}

func (h *CampsiteHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var campsite model.Campsite
	if err := json.NewDecoder(r.Body).Decode(&campsite); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "error", writeErr)
		}
		return
	}

	if err := h.service.Create(r.Context(), &campsite); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, campsite); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *CampsiteHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	campsite, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, campsite); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *CampsiteHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "error", writeErr)
		}
		return
	}

	campsites, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, campsites, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "error", err)
	}
}

func (h *CampsiteHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var updates model.CampsiteUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Update", "error", writeErr)
		}
		return
	}

	if err := h.service.UpdateName(r.Context(), id, &updates); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *CampsiteHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

// GetAvailability serves the remaining-capacity calendar for a display range.
// Both bounds are optional ISO dates; the range defaults to the configured
// window starting today.
func (h *CampsiteHandler) GetAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	start, err := httputil.ExtractDate(r, "start")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAvailability", "error", writeErr)
		}
		return
	}
	end, err := httputil.ExtractDate(r, "end")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAvailability", "error", writeErr)
		}
		return
	}

	views, err := h.service.GetAvailability(r.Context(), id, start, end)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAvailability", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, views); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAvailability", "error", err)
	}
}

func (h *CampsiteHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/campsites", h.Create)
	router.GET("/api/v1/campsites", h.GetAll)
	router.GET("/api/v1/campsites/:id", h.GetByID)
	router.PUT("/api/v1/campsites/:id", h.Update)
	router.DELETE("/api/v1/campsites/:id", h.Delete)
	router.GET("/api/v1/campsites/:id/availabilities", h.GetAvailability)
}
