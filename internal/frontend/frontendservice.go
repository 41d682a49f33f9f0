package frontend

import (
	"log/slog"
	"net/http"

	"github.com/jo-hoe/goportfolio/internal/backend/database"
	"github.com/jo-hoe/goportfolio/internal/core"
	"github.com/labstack/echo/v4"
)

const MainPageName = "index.html"

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

// indexPage is the data behind index.html.
type indexPage struct {
	Site  core.SiteConfig
	Items []*database.PortfolioItem
	Error string
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = newTemplate()

	e.GET("/", service.rootRedirectHandler)
	e.GET("/"+MainPageName, service.indexHandler)

	e.GET("/static/app.js", service.assetHandler("views/app.js", "text/javascript; charset=utf-8"))
	e.GET("/static/style.css", service.assetHandler("views/style.css", "text/css; charset=utf-8"))
	e.GET("/icon.svg", service.assetHandler("views/icon.svg", "image/svg+xml"))
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	page := indexPage{Site: service.config.Site}

	items, err := service.coreService.GetItems(ctx.Request().Context())
	if err != nil {
		// still render skills and header, the grid shows the failure
		slog.Error("indexHandler: failed to list portfolio items",
			"status", http.StatusOK, "error", err)
		page.Error = "Portfolio is currently unavailable."
		items = nil
	}
	page.Items = items

	return ctx.Render(http.StatusOK, MainPageName, page)
}

func (service *FrontendService) assetHandler(name, contentType string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		data, err := assetsFS.ReadFile(name)
		if err != nil {
			slog.Error("assetHandler: failed to read embedded asset",
				"status", http.StatusInternalServerError, "error", err, "asset", name)
			return ctx.String(http.StatusInternalServerError, "Failed to load asset")
		}
		ctx.Response().Header().Set("Cache-Control", "public, max-age=3600")
		return ctx.Blob(http.StatusOK, contentType, data)
	}
}
