package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/swaggo/swag"
	"go.uber.org/zap"

	"github.com/sifan077/curto/internal/app/route"
	infraPrometheus "github.com/sifan077/curto/internal/infra/prometheus"
	"github.com/sifan077/curto/internal/http/view"
)

// SystemDeps groups dependencies of the operational endpoints.
type SystemDeps struct {
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Title    string
}

// SystemHandler serves health, metrics and API docs.
type SystemHandler struct {
	logger   *zap.Logger
	registry *prometheus.Registry
	title    string
}

func NewSystemHandler(deps SystemDeps) *SystemHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := deps.Registry
	if reg == nil {
		reg = infraPrometheus.NewRegistry()
	}
	return &SystemHandler{logger: logger, registry: reg, title: deps.Title}
}

// Register wires system routes onto the provided router.
func (h *SystemHandler) Register(router fiber.Router) {
	router.Get(route.Health.String(), h.Health)
	router.Get(route.Metrics.String(), adaptor.HTTPHandler(infraPrometheus.Handler(h.registry)))
	router.Get(route.Docs.String(), h.DocsPage)
	router.Get(route.DocsSpec.String(), h.DocsSpec)
}

// Health handles GET /health
// @Summary Liveness probe
// @Tags system
// @Produce plain
// @Success 200 {string} string "OK"
// @Router /health [get]
func (h *SystemHandler) Health(c *fiber.Ctx) error {
	return c.SendString("OK")
}

// DocsPage serves the Swagger UI.
func (h *SystemHandler) DocsPage(c *fiber.Ctx) error {
	html, err := view.RenderDocsPage(view.DocsPageData{
		Title:   h.title,
		SpecURL: route.DocsSpec.String(),
	})
	if err != nil {
		h.logger.Error("failed to render docs page", zap.Error(err))
		return err
	}
	c.Type("html", "utf-8")
	return c.SendString(html)
}

// DocsSpec serves the registered OpenAPI document.
func (h *SystemHandler) DocsSpec(c *fiber.Ctx) error {
	doc, err := swag.ReadDoc()
	if err != nil {
		h.logger.Error("failed to read api docs", zap.Error(err))
		return err
	}
	c.Type("json", "utf-8")
	return c.SendString(doc)
}
