package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/enroltrack-backend/internal/logger"
	"github.com/yungbote/enroltrack-backend/internal/requestdata"
	"github.com/yungbote/enroltrack-backend/internal/services"
	"github.com/yungbote/enroltrack-backend/internal/types"
)

type EnrolmentHandler struct {
	log              *logger.Logger
	enrolmentService services.EnrolmentService
}

func NewEnrolmentHandler(log *logger.Logger, enrolmentService services.EnrolmentService) *EnrolmentHandler {
	return &EnrolmentHandler{
		log:              log.With("handler", "EnrolmentHandler"),
		enrolmentService: enrolmentService,
	}
}

type createEnrolmentRequest struct {
	LoID              uuid.UUID `json:"lo_id" binding:"required"`
	ParentEnrolmentID uuid.UUID `json:"parent_enrolment_id"`
	ReEnrol           bool      `json:"re_enrol"`
	Start             bool      `json:"start"`
	AssignerID        uuid.UUID `json:"assigner_id"`
}

func (h *EnrolmentHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req createEnrolmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	node, err := h.enrolmentService.Create(c.Request.Context(), services.CreateInput{
		LoID:              req.LoID,
		ParentEnrolmentID: req.ParentEnrolmentID,
		ReEnrol:           req.ReEnrol,
		Start:             req.Start,
		AssignerID:        req.AssignerID,
	})
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"enrolment": node})
}

type bulkCreateRequest struct {
	Items []createEnrolmentRequest `json:"items" binding:"required"`
}

func (h *EnrolmentHandler) BulkCreate(c *gin.Context) {
	var req bulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	items := make([]services.CreateInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.CreateInput{
			LoID:              item.LoID,
			ParentEnrolmentID: item.ParentEnrolmentID,
			ReEnrol:           item.ReEnrol,
			Start:             item.Start,
			AssignerID:        item.AssignerID,
		})
	}
	results := h.enrolmentService.BulkCreate(c.Request.Context(), items)

	type bulkItemResponse struct {
		LoID      uuid.UUID        `json:"lo_id"`
		Enrolment *types.Enrolment `json:"enrolment,omitempty"`
		Error     string           `json:"error,omitempty"`
	}
	out := make([]bulkItemResponse, 0, len(results))
	for _, r := range results {
		item := bulkItemResponse{LoID: r.LoID, Enrolment: r.Enrolment}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		out = append(out, item)
	}
	RespondOK(c, gin.H{"results": out})
}

func (h *EnrolmentHandler) ReEnrol(c *gin.Context) {
	var req struct {
		LoID              uuid.UUID `json:"lo_id" binding:"required"`
		ParentEnrolmentID uuid.UUID `json:"parent_enrolment_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	node, err := h.enrolmentService.ReEnrol(c.Request.Context(), req.LoID, req.ParentEnrolmentID)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"enrolment": node})
}

type updateEnrolmentRequest struct {
	Status    *types.EnrolmentStatus `json:"status"`
	Pass      *types.PassState       `json:"pass"`
	Result    *float64               `json:"result"`
	StartDate *time.Time             `json:"start_date"`
	EndDate   *time.Time             `json:"end_date"`
	DueDate   *time.Time             `json:"due_date"`
}

func (h *EnrolmentHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req updateEnrolmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	node, err := h.enrolmentService.Update(c.Request.Context(), services.UpdateInput{
		EnrolmentID: id,
		Status:      req.Status,
		Pass:        req.Pass,
		Result:      req.Result,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"enrolment": node})
}

func (h *EnrolmentHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	node, err := h.enrolmentService.Get(c.Request.Context(), id)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"enrolment": node})
}

func (h *EnrolmentHandler) History(c *gin.Context) {
	loID, err := uuid.Parse(c.Query("lo_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_lo_id", err)
		return
	}
	revisions, err := h.enrolmentService.History(c.Request.Context(), loID)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"revisions": revisions})
}

func (h *EnrolmentHandler) Archive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	cascade := c.DefaultQuery("cascade", "true") != "false"
	revision := c.DefaultQuery("revision", "true") != "false"
	if err := h.enrolmentService.Archive(c.Request.Context(), id, cascade, revision); err != nil {
		h.respondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"archived": id})
}

func (h *EnrolmentHandler) respondDomainError(c *gin.Context, err error) {
	var (
		conflict   *services.ConflictError
		sequence   *services.SequenceViolationError
		dependency *services.DependencyNotMetError
		transition *services.InvalidTransitionError
		store      *services.StoreFailureError
	)
	switch {
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":                 APIError{Message: err.Error(), Code: "conflict"},
			"existing_enrolment_id": conflict.ExistingID,
		})
	case errors.As(err, &sequence):
		RespondError(c, http.StatusUnprocessableEntity, "sequence_violation", err)
	case errors.As(err, &dependency):
		RespondError(c, http.StatusUnprocessableEntity, "dependency_not_met", err)
	case errors.As(err, &transition):
		RespondError(c, http.StatusUnprocessableEntity, "invalid_transition", err)
	case errors.Is(err, services.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, services.ErrNotAuthorized):
		RespondError(c, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, services.ErrPaymentRequired):
		RespondError(c, http.StatusPaymentRequired, "payment_required", err)
	case errors.As(err, &store):
		RespondError(c, http.StatusServiceUnavailable, "store_failure", err)
	default:
		h.log.Error("enrolment request failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
