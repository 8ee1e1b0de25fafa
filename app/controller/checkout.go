package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/linkpagos/ms-go-paylinks/app/factory"
	"github.com/linkpagos/ms-go-paylinks/app/mapper"
	"github.com/linkpagos/ms-go-paylinks/app/service"
	"github.com/linkpagos/ms-go-paylinks/app/types"
)

// CheckoutController serves the public payment page: no session required,
// link ids are the only capability.
type CheckoutController struct {
	linkService *service.LinkService
	logger      logrus.FieldLogger
}

func NewCheckoutController(linkService *service.LinkService) *CheckoutController {
	return &CheckoutController{
		linkService: linkService,
		logger:      factory.NewModuleLogger("checkout-controller"),
	}
}

func (c *CheckoutController) GetPublicLink(ctx echo.Context) error {
	item, err := c.linkService.GetPublicLink(ctx.Request().Context(), ctx.Param("linkId"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLinkNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment link not found")
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			c.logger.WithError(err).Error("Get public link failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.LinkEnvelopeResponse{Link: mapper.LinkToResponse(item)})
}

func (c *CheckoutController) GetCheckoutSession(ctx echo.Context) error {
	req, err := types.NewGetCheckoutSessionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	session, err := c.linkService.GetCheckoutSession(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLinkNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment link not found")
		case errors.Is(err, service.ErrLinkNotPayable), errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrProviderUnsupported):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			c.logger.WithError(err).Error("Get checkout session failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, session)
}

func (c *CheckoutController) CreateTransaction(ctx echo.Context) error {
	req, err := types.NewCreateTransactionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	link, output, err := c.linkService.CreateCheckoutTransaction(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLinkNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment link not found")
		case errors.Is(err, service.ErrLinkNotPayable), errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrProviderUnsupported):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			c.logger.WithError(err).Error("Create checkout transaction failed")
			return c.writeError(ctx, http.StatusBadGateway, "payment could not be processed")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.TransactionResponse{
		TransactionID:   output.TransactionID,
		Status:          output.Status,
		Reference:       output.Reference,
		LinkStatus:      link.Status,
		AsyncPaymentURL: output.AsyncPaymentURL,
	})
}

func (c *CheckoutController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
