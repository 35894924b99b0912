package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tramites-digitales/tramites-api/config"
	"github.com/tramites-digitales/tramites-api/controllers"
	"github.com/tramites-digitales/tramites-api/middleware"
	"github.com/tramites-digitales/tramites-api/services"
)

// NewRouter wires middleware, controllers and routes into a gin engine.
// main and the integration suites both stand up the HTTP surface through
// this function, so the route table exists exactly once.
func NewRouter(
	cfg *config.Config,
	db *gorm.DB,
	tokens *services.TokenService,
	passwords *services.PasswordService,
	documents services.DocumentStore,
	email services.EmailSender,
	zapLogger *zap.Logger,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxUploadBytes

	request := middleware.NewRequestMiddleware(zapLogger)
	router.Use(request.LogRequests(), request.RecoverPanic(), request.LimitBodySize(cfg.MaxUploadBytes))

	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{cfg.CORSOrigin},
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Disposition", "X-Request-ID"},
	}))

	auth := middleware.NewAuthMiddleware(tokens, db)

	authController := controllers.NewAuthController(db, tokens, passwords, zapLogger)
	solicitudController := controllers.NewSolicitudController(db, zapLogger)
	tramiteController := controllers.NewTramiteController(db, documents, email, zapLogger)
	documentController := controllers.NewDocumentController(documents, zapLogger)
	expedienteController := controllers.NewExpedienteController(db, zapLogger)

	api := router.Group("/api")
	{
		api.GET("/health", healthCheck)

		// Public endpoints: no authorization gate.
		api.POST("/register", authController.Register)
		api.POST("/login", authController.Login)
		api.GET("/expedientes/consulta", expedienteController.Consulta)

		protected := api.Group("")
		protected.Use(auth.RequireToken())
		{
			protected.GET("/user", authController.Me)

			protected.POST("/solicitudes", solicitudController.Create)
			protected.GET("/solicitudes", solicitudController.List)

			protected.POST("/tramites", tramiteController.Create)
			protected.GET("/tramites", tramiteController.List)
			protected.PATCH("/tramites/:id", tramiteController.UpdateEstado)
			protected.DELETE("/tramites/:id", tramiteController.Delete)

			protected.GET("/documents/:filename", documentController.Get)
			protected.GET("/documents/download/:filename", documentController.Download)
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Tramites API is running",
	})
}
