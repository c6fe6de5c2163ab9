package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"roomres/internal/reservations/service"
	apperrors "roomres/pkg/errors"
	httputil "roomres/pkg/http"
	"roomres/pkg/logger"
	"roomres/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// Actor identity headers, asserted by the upstream gateway.
const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"
)

type ReservationHandler struct {
	service service.ReservationService
	log     *logger.Logger
}

func NewReservationHandler(service service.ReservationService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log,
	}
}

type extensionRequest struct {
	Reason string `json:"reason"`
}

type extensionResponse struct {
	Reservation  *model.Reservation `json:"reservation"`
	ConflictTime *string            `json:"conflict_time,omitempty"`
}

func actorFrom(r *http.Request) (model.Actor, error) {
	id := strings.TrimSpace(r.Header.Get(headerActorID))
	if id == "" {
		return model.Actor{}, apperrors.InvalidInput("missing X-Actor-ID header")
	}

	role := model.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(headerActorRole))))
	if role == "" {
		role = model.RoleUser
	}
	if !role.IsValid() {
		return model.Actor{}, apperrors.InvalidInput("unknown X-Actor-Role: " + string(role))
	}

	return model.Actor{UserID: id, Role: role}, nil
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, name string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", name, "error", writeErr)
	}
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var res model.Reservation
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "error", writeErr)
		}
		return
	}

	if err := h.service.Create(r.Context(), actor, &res); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, res); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *ReservationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, res); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	roomID := query.Get("room_id")
	if roomID == "" {
		h.writeError(w, "List", apperrors.InvalidInput("'room_id' query parameter is required"))
		return
	}

	var statuses []model.Status
	if raw := query.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, model.Status(strings.TrimSpace(s)))
		}
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	reservations, total, err := h.service.ListByRoom(r.Context(), roomID, statuses, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, reservations, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "error", err)
	}
}

// action wraps the shared shape of the lifecycle endpoints.
func (h *ReservationHandler) action(
	name string,
	call func(r *http.Request, actor model.Actor, id string) (*model.Reservation, error),
) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		actor, err := actorFrom(r)
		if err != nil {
			h.writeError(w, name, err)
			return
		}

		res, err := call(r, actor, ps.ByName("id"))
		if err != nil {
			h.writeError(w, name, err)
			return
		}

		if err := httputil.WriteSuccess(w, res); err != nil {
			h.log.Error("failed to write success response", "handler", name, "error", err)
		}
	}
}

func (h *ReservationHandler) RequestExtension(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, "RequestExtension", err)
		return
	}

	var req extensionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
				Error: "Invalid request body",
			}); writeErr != nil {
				h.log.Error("failed to write JSON response", "handler", "RequestExtension", "error", writeErr)
			}
			return
		}
	}

	result, err := h.service.RequestExtension(r.Context(), actor, ps.ByName("id"), req.Reason)
	if err != nil {
		h.writeError(w, "RequestExtension", err)
		return
	}

	resp := extensionResponse{Reservation: result.Reservation}
	if result.ConflictTime != nil {
		formatted := result.ConflictTime.Format(time.RFC3339)
		resp.ConflictTime = &formatted
	}

	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "RequestExtension", "error", err)
	}
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/reservations", h.Create)
	router.GET("/api/v1/reservations", h.List)
	router.GET("/api/v1/reservations/id/:id", h.GetByID)

	router.POST("/api/v1/reservations/id/:id/approve", h.action("Approve", func(r *http.Request, actor model.Actor, id string) (*model.Reservation, error) {
		return h.service.Approve(r.Context(), actor, id)
	}))
	router.POST("/api/v1/reservations/id/:id/reject", h.action("Reject", func(r *http.Request, actor model.Actor, id string) (*model.Reservation, error) {
		return h.service.Reject(r.Context(), actor, id)
	}))
	router.POST("/api/v1/reservations/id/:id/cancel", h.action("Cancel", func(r *http.Request, actor model.Actor, id string) (*model.Reservation, error) {
		return h.service.Cancel(r.Context(), actor, id)
	}))
	router.POST("/api/v1/reservations/id/:id/start", h.action("Start", func(r *http.Request, actor model.Actor, id string) (*model.Reservation, error) {
		return h.service.Start(r.Context(), actor, id)
	}))
	router.POST("/api/v1/reservations/id/:id/end", h.action("EndEarly", func(r *http.Request, actor model.Actor, id string) (*model.Reservation, error) {
		return h.service.EndEarly(r.Context(), actor, id)
	}))

	router.POST("/api/v1/reservations/id/:id/extension", h.RequestExtension)
	router.POST("/api/v1/reservations/id/:id/extension/approve", h.action("ApproveExtension", func(r *http.Request, actor model.Actor, id string) (*model.Reservation, error) {
		return h.service.ResolveExtension(r.Context(), actor, id, true)
	}))
	router.POST("/api/v1/reservations/id/:id/extension/reject", h.action("RejectExtension", func(r *http.Request, actor model.Actor, id string) (*model.Reservation, error) {
		return h.service.ResolveExtension(r.Context(), actor, id, false)
	}))
}
