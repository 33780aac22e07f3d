package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sifan077/curto/internal/app/model"
	"github.com/sifan077/curto/internal/app/route"
	"github.com/sifan077/curto/internal/app/service"
)

// LinkDeps groups dependencies required by link handlers.
type LinkDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
}

// LinkHandler implements the link endpoints.
type LinkHandler struct {
	logger      *zap.Logger
	linkService service.LinkService
	validate    *validator.Validate
}

// NewLinkHandler creates a link handler with the provided dependencies.
func NewLinkHandler(deps LinkDeps) *LinkHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkHandler{
		logger:      logger,
		linkService: deps.LinkService,
		validate:    newValidator(),
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Register wires link routes onto the provided router. The redirect route
// catches every single-segment path, so register it after anything else
// served at the top level.
func (h *LinkHandler) Register(router fiber.Router) {
	router.Post(route.LinkCreate.String(), h.CreateLink)
	router.Get(route.LinkList.String(), h.ListLinks)
	router.Get(route.LinkGet.String(), h.GetLink)
	router.Get(route.LinkRedirect.String(), h.Redirect)
}

// CreateLinkRequest represents the request body for creating a link.
// TargetURL is a pointer so that an absent field is a request error while an
// empty one is a malformed URL.
type CreateLinkRequest struct {
	TargetURL *string `json:"targetUrl" validate:"required" example:"https://crates.io/"`
	CustomID  *string `json:"customId,omitempty" example:"crates"`
}

// LinkResponse documents the serialized model.Link.
type LinkResponse struct {
	ID             string `json:"id" example:"bmdkw"`
	TargetURL      string `json:"targetUrl" example:"https://crates.io/"`
	CountRedirects int64  `json:"countRedirects" example:"0"`
	CreatedAt      string `json:"createdAt" example:"2025-01-15T12:00:00.123456"`
	UpdatedAt      string `json:"updatedAt" example:"2025-01-15T12:00:00.123456"`
}

// CreateLink handles POST /create
// @Summary Create a short link
// @Description Creates a short link. When customId is omitted a random five character id is generated.
// @Tags links
// @Accept json
// @Produce json
// @Param request body CreateLinkRequest true "Link to create"
// @Success 201 {object} LinkResponse
// @Failure 400 {object} ErrorResponse "Invalid request body"
// @Failure 422 {object} ErrorResponse "Invalid target URL or custom id"
// @Failure 500 {object} ErrorResponse "Internal error"
// @Router /create [post]
func (h *LinkHandler) CreateLink(c *fiber.Ctx) error {
	var req CreateLinkRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return invalidRequest(err.Error())
	}
	if err := h.validate.Struct(&req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return invalidRequest(validationMessage(fieldErrs[0]))
		}
		return invalidRequest(err.Error())
	}

	link, err := h.linkService.Create(userContext(c), service.CreateLinkInput{
		TargetURL:   *req.TargetURL,
		CustomID:    req.CustomID,
		RequestHost: string(c.Request().Host()),
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(link)
}

// ListLinks handles GET /links
// @Summary List every link
// @Tags links
// @Produce json
// @Success 200 {array} LinkResponse
// @Failure 500 {object} ErrorResponse "Internal error"
// @Router /links [get]
func (h *LinkHandler) ListLinks(c *fiber.Ctx) error {
	links, err := h.linkService.List(userContext(c))
	if err != nil {
		return err
	}
	if links == nil {
		links = []model.Link{}
	}
	return c.JSON(links)
}

// GetLink handles GET /links/:id
// @Summary Get a link
// @Tags links
// @Produce json
// @Param id path string true "Short id"
// @Success 200 {object} LinkResponse
// @Failure 404 {object} ErrorResponse "Link not found"
// @Failure 500 {object} ErrorResponse "Internal error"
// @Router /links/{id} [get]
func (h *LinkHandler) GetLink(c *fiber.Ctx) error {
	link, err := h.linkService.Get(userContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(link)
}

// Redirect handles GET /:id
// @Summary Follow a short link
// @Description Redirects to the stored target. A query string on the request replaces the one on the target.
// @Tags links
// @Param id path string true "Short id"
// @Success 307
// @Failure 404 {object} ErrorResponse "Link not found"
// @Failure 500 {object} ErrorResponse "Internal error"
// @Router /{id} [get]
func (h *LinkHandler) Redirect(c *fiber.Ctx) error {
	result, err := h.linkService.Redirect(userContext(c), service.RedirectInput{
		ID:       c.Params("id"),
		RawQuery: string(c.Request().URI().QueryString()),
		Headers:  requestHeaders(c),
	})
	if err != nil {
		return err
	}

	for key, values := range result.Headers {
		for _, v := range values {
			c.Response().Header.Add(key, v)
		}
	}
	// SendStatus would write the status text as the body.
	c.Status(fiber.StatusTemporaryRedirect)
	return nil
}

func requestHeaders(c *fiber.Ctx) http.Header {
	raw := c.GetReqHeaders()
	headers := make(http.Header, len(raw))
	for key, values := range raw {
		for _, v := range values {
			headers.Add(key, v)
		}
	}
	return headers
}

func userContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "missing field `" + fe.Field() + "`"
	default:
		return fe.Field() + " is invalid"
	}
}
