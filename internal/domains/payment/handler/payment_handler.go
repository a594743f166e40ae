package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	checkoutmodel "storefront-backend/internal/domains/checkout/model"
	ordermodel "storefront-backend/internal/domains/order/model"
	"storefront-backend/internal/domains/payment/model"
	"storefront-backend/internal/domains/payment/service"
	"storefront-backend/internal/shared/response"
)

type PaymentHandler struct {
	paymentService service.ServiceInterface
}

func NewPaymentHandler(paymentService service.ServiceInterface) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// InitiatePayment handles POST /payment/initiate.
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	var req model.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	resp, err := h.paymentService.InitiatePayment(c.Request.Context(), &req)
	if err != nil {
		var verrs validation.Errors
		var orderErr *ordermodel.OrderError
		switch {
		case errors.As(err, &verrs):
			response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "request validation failed", verrs)
		case errors.Is(err, checkoutmodel.ErrSessionNotFound):
			response.NotFound(c, "checkout session not found")
		case errors.Is(err, checkoutmodel.ErrSessionNotOpen):
			response.ErrorResponse(c, http.StatusConflict, "SESSION_CLOSED", "checkout session is no longer open")
		case errors.Is(err, model.ErrGatewayUnavailable):
			response.ErrorResponse(c, http.StatusBadGateway, "GATEWAY_UNAVAILABLE", "payment gateway is unavailable, retry with the same idempotency key")
		case errors.As(err, &orderErr) && orderErr.Code == ordermodel.CodeValidation:
			response.BadRequest(c, orderErr.Message)
		default:
			response.InternalServerError(c, "failed to initiate payment")
		}
		return
	}

	response.Success(c, http.StatusCreated, resp)
}
