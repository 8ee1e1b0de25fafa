package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/linkpagos/ms-go-paylinks/app/auth"
	"github.com/linkpagos/ms-go-paylinks/app/factory"
	"github.com/linkpagos/ms-go-paylinks/app/mapper"
	"github.com/linkpagos/ms-go-paylinks/app/service"
	"github.com/linkpagos/ms-go-paylinks/app/types"
)

type LinkController struct {
	linkService *service.LinkService
	logger      logrus.FieldLogger
}

func NewLinkController(linkService *service.LinkService) *LinkController {
	return &LinkController{
		linkService: linkService,
		logger:      factory.NewModuleLogger("links-controller"),
	}
}

func (c *LinkController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *LinkController) CreateLink(ctx echo.Context) error {
	req, err := types.NewCreateLinkRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.linkService.CreateLink(ctx.Request().Context(), auth.PrincipalFromContext(ctx), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrProviderUnsupported):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrLinkAlreadyExists):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		default:
			c.logger.WithError(err).Error("Create link failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.LinkEnvelopeResponse{Link: mapper.LinkToResponse(item)})
}

func (c *LinkController) GetLink(ctx echo.Context) error {
	req, err := types.NewGetLinkRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, owner, err := c.linkService.GetLink(ctx.Request().Context(), auth.PrincipalFromContext(ctx), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLinkNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment link not found")
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			c.logger.WithError(err).Error("Get link failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	response := mapper.LinkToResponse(item)
	response.User = mapper.LinkOwnerToResponse(owner)

	return ctx.JSON(http.StatusOK, &types.LinkEnvelopeResponse{Link: response})
}

func (c *LinkController) ListLinks(ctx echo.Context) error {
	req, err := types.NewListLinksRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, total, err := c.linkService.ListLinks(ctx.Request().Context(), auth.PrincipalFromContext(ctx), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		}
		c.logger.WithError(err).Error("List links failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	totalPages := int32(total / int64(req.PageSize))
	if total%int64(req.PageSize) != 0 {
		totalPages++
	}

	return ctx.JSON(http.StatusOK, &types.ListLinksResponse{
		Data:       mapper.LinksToResponse(items),
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	})
}

func (c *LinkController) UpdateLink(ctx echo.Context) error {
	req, err := types.NewUpdateLinkRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.linkService.UpdateLink(ctx.Request().Context(), auth.PrincipalFromContext(ctx), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLinkNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment link not found")
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidStatus):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			c.logger.WithError(err).Error("Update link failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.LinkEnvelopeResponse{Link: mapper.LinkToResponse(item)})
}

func (c *LinkController) DeleteLink(ctx echo.Context) error {
	req, err := types.NewGetLinkRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if err := c.linkService.DeleteLink(ctx.Request().Context(), auth.PrincipalFromContext(ctx), req); err != nil {
		switch {
		case errors.Is(err, service.ErrLinkNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment link not found")
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidStatus):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			c.logger.WithError(err).Error("Delete link failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Payment link deleted"})
}

func (c *LinkController) GetBoldPaymentMethods(ctx echo.Context) error {
	methods, err := c.linkService.GetBoldPaymentMethods(ctx.Request().Context())
	if err != nil {
		c.logger.WithError(err).Error("Get bold payment methods failed")
		return c.writeError(ctx, http.StatusBadGateway, "payment methods unavailable")
	}

	return ctx.JSON(http.StatusOK, &types.BoldPaymentMethodsResponse{PaymentMethods: methods})
}

func (c *LinkController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
