package api

import (
	"time"

	"RWAPrice/internal/domain/models"
	drepo "RWAPrice/internal/domain/repository"
	"RWAPrice/internal/usecase"
	xhttp "RWAPrice/pkg/http"
	xlogger "RWAPrice/pkg/logger"
	xutil "RWAPrice/pkg/util"

	"github.com/labstack/echo/v4"
)

// Version is the reported service version.
const Version = "1.0.0"

// PricingEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type PricingEchoHandler struct {
	logger  *xlogger.Logger
	pricer  *usecase.Pricer
	catalog drepo.AssetCatalog
	token   string
}

func NewPricingEchoHandler(logger *xlogger.Logger, pricer *usecase.Pricer, catalog drepo.AssetCatalog, token string) *PricingEchoHandler {
	return &PricingEchoHandler{logger: logger, pricer: pricer, catalog: catalog, token: token}
}

func (h *PricingEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.GET("/assets/:id", h.Asset)

	p := g.Group("", BearerAuth(h.token))
	p.POST("/price", h.Price)
	p.POST("/datasource/update", h.DataSourceUpdate)
	p.GET("/knowledge/search", h.KnowledgeSearch)
}

func (h *PricingEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, &models.HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Documents: h.pricer.KnowledgeSize(),
	})
}

func (h *PricingEchoHandler) Asset(c echo.Context) error {
	meta, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("asset '%s' not found", c.Param("id")).WithError(err))
	}
	return xhttp.SuccessResponse(c, meta)
}

func (h *PricingEchoHandler) Price(c echo.Context) error {
	req := &models.PriceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	meta, err := h.catalog.Get(req.AssetID)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("asset '%s' not found", req.AssetID).WithError(err))
	}

	signal, err := h.pricer.Price(c.Request().Context(), meta.Context(req.CurrentPrice))
	if err != nil {
		h.logger.Error("pricing usecase error", xlogger.String("asset", req.AssetID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_GENERATION_UNAVAILABLE", "", "price generation unavailable", 503).WithError(err))
	}
	return xhttp.SuccessResponse(c, signal)
}

func (h *PricingEchoHandler) DataSourceUpdate(c echo.Context) error {
	req := &models.ObservationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ts := xutil.ParseTimeDefault(req.Timestamp, time.Now().UTC())
	if err := h.pricer.IngestObservation(c.Request().Context(), req.SourceName, req.Data, ts); err != nil {
		h.logger.Error("observation ingest error", xlogger.String("source", req.SourceName), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("knowledge base update failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, &models.ObservationResponse{
		Status:    "success",
		Timestamp: ts.Format(time.RFC3339),
	})
}

func (h *PricingEchoHandler) KnowledgeSearch(c echo.Context) error {
	req := &models.KnowledgeSearchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	hits, err := h.pricer.SearchKnowledge(c.Request().Context(), req.Query, req.K)
	if err != nil {
		h.logger.Error("knowledge search error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("knowledge search failed").WithError(err))
	}
	return xhttp.ListResponse(c, hits, int64(len(hits)))
}
