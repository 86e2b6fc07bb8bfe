package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/railmadad/backend/internal/config"
	"github.com/railmadad/backend/internal/http/handlers"
	"github.com/railmadad/backend/internal/http/middleware"
	"github.com/railmadad/backend/internal/models"

	_ "github.com/railmadad/backend/docs"
)

type Deps struct {
	Handler *handlers.Handler
	Tokens  middleware.Authenticator
	Metrics interface {
		middleware.RequestRecorder
		Handler() http.Handler
	}
}

func Router(cfg config.Config, d Deps, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	r.MaxMultipartMemory = cfg.MaxUploadSizeMB << 20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" || cfg.CORSAllowed == "" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		for _, o := range strings.Split(cfg.CORSAllowed, ",") {
			if o = strings.TrimSpace(o); o != "" {
				corsCfg.AllowOrigins = append(corsCfg.AllowOrigins, o)
			}
		}
	}
	r.Use(cors.New(corsCfg))

	h := d.Handler
	h.MaxUploadBytes = cfg.MaxUploadSizeMB << 20

	r.GET("/healthz", h.Healthz)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		api.POST("/auth/send-otp", h.SendOTP)
		api.POST("/auth/verify-otp", h.VerifyOTP)
		api.GET("/categories", h.ListCategories)
		api.GET("/categories/:id", h.GetCategory)
	}

	authed := api.Group("")
	authed.Use(middleware.Authenticate(d.Tokens))
	{
		authed.GET("/auth/me", h.Me)
		authed.POST("/complaints", h.CreateComplaint)
		authed.GET("/complaints", h.ListComplaints)
		authed.GET("/complaints/:id", h.GetComplaint)
		authed.PATCH("/complaints/:id", h.UpdateComplaint)
		authed.GET("/media/:id", h.GetMedia)
		authed.GET("/stats", h.Stats)
		authed.POST("/chatbot", h.Chatbot)
	}

	admin := authed.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/categories", h.CreateCategory)
		admin.PATCH("/categories/:id", h.UpdateCategory)
		admin.DELETE("/categories/:id", h.DeactivateCategory)
		admin.POST("/complaints/:id/assign", h.AssignComplaint)
		admin.GET("/complaints/:id/worker-suggestions", h.WorkerSuggestions)
		admin.GET("/workers", h.ListWorkers)
	}

	worker := authed.Group("/worker")
	worker.Use(middleware.RequireRoles(models.RoleWorker))
	{
		worker.GET("/assignments", h.WorkerAssignments)
		worker.PATCH("/assignments/:id", h.WorkerProgress)
		worker.PATCH("/availability", h.WorkerAvailability)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
