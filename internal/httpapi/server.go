// Package httpapi exposes core.Service to the UI as JSON over HTTP. Fit
// progress is streamed over a WebSocket.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"diffractcore/internal/blob"
	"diffractcore/internal/core"
	"diffractcore/pkg/domain"
)

// Server routes HTTP requests to a core.Service.
type Server struct {
	svc      *core.Service
	logger   *slog.Logger
	metrics  http.Handler
	upgrader websocket.Upgrader
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithCheckOrigin replaces the WebSocket origin check. The default accepts
// same-host origins only.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(s *Server) { s.upgrader.CheckOrigin = fn }
}

// New constructs a Server for svc.
func New(svc *core.Service, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		logger: slog.New(slog.DiscardHandler),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}

	api := r.Group("/api/v1")
	api.GET("/engines", s.listEngines)
	api.PUT("/engines", s.useEngine)
	api.GET("/plugins", s.listPlugins)
	api.GET("/space-groups", s.listSpaceGroups)
	api.POST("/archives/restore", s.restoreArchive)

	api.GET("/projects", s.listProjects)
	api.POST("/projects", s.createProject)
	api.POST("/projects/import", s.importDocument)

	p := api.Group("/projects/:project")
	p.GET("", s.getProject)
	p.PATCH("", s.updateProject)
	p.DELETE("", s.deleteProject)
	p.GET("/export", s.exportDocument)
	p.GET("/archives", s.listArchives)
	p.POST("/archives", s.archiveProject)

	p.GET("/parameters", s.listParameters)
	p.PUT("/parameters/:param/value", s.setParameterValue)
	p.PUT("/parameters/:param/free", s.setParameterFree)
	p.PUT("/parameters/:param/bounds", s.setParameterBounds)
	p.PUT("/parameters/:param/constraint", s.linkParameter)
	p.DELETE("/parameters/:param/constraint", s.unlinkParameter)
	p.GET("/history", s.history)
	p.POST("/undo", s.undo)
	p.POST("/redo", s.redo)

	p.POST("/phases", s.addPhase)
	p.POST("/phases/cif", s.importCIF)
	p.GET("/phases.cif", s.exportCIF)
	p.DELETE("/phases/:phase", s.removePhase)
	p.PUT("/phases/:phase/name", s.renamePhase)
	p.PUT("/phases/:phase/space_group", s.setSpaceGroup)
	p.POST("/phases/:phase/atoms", s.addAtom)
	p.POST("/phases/:phase/atoms/:label/duplicate", s.duplicateAtom)
	p.PUT("/phases/:phase/atoms/:label/adp", s.setADPType)
	p.DELETE("/phases/:phase/atoms/:label", s.removeAtom)

	p.POST("/experiments", s.addExperiment)
	p.DELETE("/experiments/:exp", s.removeExperiment)
	p.PUT("/experiments/:exp/data", s.importXYE)
	p.DELETE("/experiments/:exp/data", s.clearMeasured)
	p.PUT("/experiments/:exp/range", s.setRange)
	p.PUT("/experiments/:exp/phases/:phase", s.linkPhase)
	p.DELETE("/experiments/:exp/phases/:phase", s.unlinkPhase)
	p.POST("/experiments/:exp/background", s.addBackgroundPoint)
	p.DELETE("/experiments/:exp/background", s.removeBackgroundPoint)
	p.GET("/experiments/:exp/pattern", s.calculate)
	p.GET("/patterns", s.calculateAll)

	p.PUT("/fit/config", s.setFitConfig)
	p.POST("/fit", s.startFit)
	p.GET("/fit", s.fitStatus)
	p.DELETE("/fit", s.cancelFit)
	p.GET("/fit/stream", s.streamFit)
	return r
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
		)
	}
}

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Kind    domain.Kind   `json:"kind,omitempty"`
	Code    domain.Code   `json:"code,omitempty"`
	Subject string        `json:"subject,omitempty"`
	Message string        `json:"message"`
	Result  domain.Result `json:"result,omitzero"`
}

func statusFor(err error) int {
	var rv domain.RuleViolationError
	if errors.As(err, &rv) {
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, blob.ErrUnsupported) {
		return http.StatusNotImplemented
	}
	switch domain.CodeOf(err) {
	case domain.CodeDuplicateID:
		return http.StatusConflict
	case domain.CodeUnknownID:
		return http.StatusNotFound
	}
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindValidation, domain.KindConstraint:
		return http.StatusBadRequest
	case domain.KindConcurrency:
		return http.StatusConflict
	case domain.KindImport, domain.KindNumerical:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func asDomain(err error) *domain.Error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	return nil
}

func bodyFor(err error) errorBody {
	body := errorBody{Message: err.Error()}
	if de := asDomain(err); de != nil {
		body.Kind, body.Code, body.Subject, body.Message = de.Kind(), de.Code, de.Subject, de.Message
	}
	var rv domain.RuleViolationError
	if errors.As(err, &rv) {
		body.Result = rv.Result
	}
	return body
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": bodyFor(err)})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errorBody{
		Kind:    domain.KindValidation,
		Code:    domain.CodeMalformedData,
		Message: err.Error(),
	}})
}

// reply writes data together with the non-blocking rule result.
func reply(c *gin.Context, status int, data any, res domain.Result) {
	c.JSON(status, gin.H{"data": data, "result": res})
}
