package handlers

import (
	"time"

	"home_dispatch/internal/logger"
	"home_dispatch/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services    *service.Service
	log         *logger.Logger
	corsOrigins []string
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// AllowOrigins enables CORS for the browser panel. "*" allows any origin.
func (h *Handler) AllowOrigins(origins ...string) *Handler {
	h.corsOrigins = origins
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger)
	if len(h.corsOrigins) > 0 {
		router.Use(h.corsMiddleware())
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Icons are public so the panel can use them in <img> tags
	h.registerIconRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Live execution log stream
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) corsMiddleware() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range h.corsOrigins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = h.corsOrigins
	return cors.New(cfg)
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerIconRoutes(r *gin.Engine) {
	icons := r.Group("/api/icons")
	{
		icons.GET("", h.listIcons)
		icons.GET("/:name", h.getIcon)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.operatorMiddleware)
	{
		h.registerDeviceRoutes(api)
		h.registerInstructionRoutes(api)
		h.registerCatalogRoutes(api)
		h.registerScheduleRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerDeviceRoutes(api *gin.RouterGroup) {
	devices := api.Group("/devices")
	{
		devices.GET("", h.listDevices)
		devices.POST("", h.createDevice)
		devices.GET("/:id", h.getDevice)
		devices.PUT("/:id", h.updateDevice)
		devices.DELETE("/:id", h.deleteDevice)
		// Body example: {"source":"panel"}
		devices.POST("/:id/actions/:action_id/execute", h.executeAction)
	}
}

func (h *Handler) registerInstructionRoutes(api *gin.RouterGroup) {
	instructions := api.Group("/instructions")
	{
		// Body example: {"text":"打开空调","source":"voice"}
		instructions.POST("", h.submitInstruction)
		instructions.POST("/preview", h.previewInstruction)
	}
}

func (h *Handler) registerCatalogRoutes(api *gin.RouterGroup) {
	catalog := api.Group("/catalog")
	{
		catalog.POST("/reload", h.reloadCatalog)
	}
}

func (h *Handler) registerScheduleRoutes(api *gin.RouterGroup) {
	schedules := api.Group("/schedules")
	{
		schedules.GET("", h.listSchedules)
		schedules.POST("", h.createSchedule)
		schedules.GET("/status", h.schedulerStatus)
		schedules.GET("/:id", h.getSchedule)
		schedules.PUT("/:id", h.updateSchedule)
		schedules.DELETE("/:id", h.deleteSchedule)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("", h.getLogs)
	}
}
