package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/linkpagos/ms-go-paylinks/app/factory"
	"github.com/linkpagos/ms-go-paylinks/app/service"
	"github.com/linkpagos/ms-go-paylinks/app/types"
)

type WebhookController struct {
	linkService *service.LinkService
	logger      logrus.FieldLogger
}

func NewWebhookController(linkService *service.LinkService) *WebhookController {
	return &WebhookController{
		linkService: linkService,
		logger:      factory.NewModuleLogger("webhooks-controller"),
	}
}

// HandleProviderWebhook acknowledges with 200 whenever the event was
// authentic, even when it matched no link or drove no transition; providers
// retry anything else. Signature failures are the exception: a 401 tells the
// provider it is signing with the wrong secret.
func (c *WebhookController) HandleProviderWebhook(ctx echo.Context) error {
	req, err := types.NewProviderWebhookRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	_, err = c.linkService.HandleProviderWebhook(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWebhookRejected):
			return c.writeError(ctx, http.StatusUnauthorized, "invalid webhook signature")
		case errors.Is(err, service.ErrProviderUnsupported), errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrLinkNotFound):
			return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Webhook received"})
		default:
			c.logger.WithError(err).Error("Handle provider webhook failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Webhook processed"})
}

func (c *WebhookController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
