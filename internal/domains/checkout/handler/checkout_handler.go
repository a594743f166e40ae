package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"storefront-backend/internal/domains/checkout/model"
	"storefront-backend/internal/domains/checkout/service"
	stockmodel "storefront-backend/internal/domains/stock/model"
	"storefront-backend/internal/shared/response"
	"storefront-backend/internal/shared/utils"
)

type CheckoutHandler struct {
	checkoutService service.ServiceInterface
}

func NewCheckoutHandler(checkoutService service.ServiceInterface) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// CreateSession handles POST /checkout/session.
func (h *CheckoutHandler) CreateSession(c *gin.Context) {
	var req model.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	session, err := h.checkoutService.CreateSession(c.Request.Context(), &req)
	if err != nil {
		var verrs validation.Errors
		switch {
		case errors.As(err, &verrs):
			response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "request validation failed", verrs)
		case errors.Is(err, stockmodel.ErrOutOfStock):
			response.ErrorResponse(c, http.StatusConflict, "OUT_OF_STOCK", err.Error())
		case errors.Is(err, model.ErrProductInactive), errors.Is(err, model.ErrSizeNotAvailable):
			response.BadRequest(c, err.Error())
		default:
			response.InternalServerError(c, "failed to create checkout session")
		}
		return
	}

	response.Success(c, http.StatusCreated, model.NewSessionResponse(session))
}

// GetSession handles GET /checkout/session/:sessionId.
func (h *CheckoutHandler) GetSession(c *gin.Context) {
	sessionID := utils.ParseStringToUUID(c.Param("sessionId"))
	if sessionID == uuid.Nil {
		response.BadRequest(c, "invalid session id")
		return
	}

	session, err := h.checkoutService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			response.NotFound(c, "checkout session not found")
			return
		}
		response.InternalServerError(c, "failed to load checkout session")
		return
	}

	response.Success(c, http.StatusOK, model.NewSessionResponse(session))
}
