package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/quizsmith/quizsmith-backend/internal/config"
	"github.com/quizsmith/quizsmith-backend/internal/handler"
	"github.com/quizsmith/quizsmith-backend/internal/middleware"
	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/quizsmith/quizsmith-backend/internal/response"
	"github.com/quizsmith/quizsmith-backend/internal/service"
)

// uploadsMaxAge is a year in seconds. Upload URLs never change
// content, so clients may cache them for as long as they like.
const uploadsMaxAge = 31536000

// Handlers collects every handler the router mounts.
type Handlers struct {
	Auth       *handler.AuthHandler
	Page       *handler.PageHandler
	Question   *handler.QuestionHandler
	Editor     *handler.EditorWSHandler
	Media      *handler.MediaHandler
	Author     *handler.AuthorHandler
	Role       *handler.RoleHandler
	Collection *handler.CollectionHandler
	Setting    *handler.SettingHandler
	Dashboard  *handler.DashboardHandler
	Activity   *handler.ActivityHandler
	System     *handler.SystemHandler
}

// SetupRouter mounts every route group with its middleware chain.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	router.Use(cors.New(corsOptions(cfg)))
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Uploaded media, served as immutable static files.
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.ImmutableCache(uploadsMaxAge))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	// ─── Reader API, no auth ───────────────────────────────────────────
	publicAPI := router.Group("/api/v1/public")
	{
		publicAPI.GET("/settings", handlers.Setting.GetPublicSettings)
		publicAPI.GET("/pages", handlers.Page.ListPublishedPages)
		publicAPI.GET("/pages/:page_id", handlers.Page.GetPublishedPage)
	}

	// ─── Auth, rate limited against credential stuffing ────────────────
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/login", handlers.Auth.Login)

		// Profile routes carry a token even though they live under the
		// auth group.
		auth.POST("/logout", middleware.RequireAuthorJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireAuthorJWT(authService), handlers.Auth.GetProfile)
		auth.POST("/password", middleware.RequireAuthorJWT(authService), handlers.Auth.ChangePassword)
	}

	// ─── Editor stream, token in query ─────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireAuthorWSAuth(authService))
	{
		ws.GET("/editor/pages/:page_id/stream", handlers.Editor.EditorStream)
	}

	// ─── Author API: JWT, single device session, RBAC per route ────────
	authorAPI := router.Group("/api/v1")
	authorAPI.Use(
		middleware.RequireAuthorJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		// Uploads
		authorAPI.POST("/media/upload",
			middleware.RequirePermission(string(model.PermissionMediaUpload)),
			handlers.Media.UploadMedia,
		)

		// Page management
		authorAPI.GET("/pages",
			middleware.RequirePermission(string(model.PermissionPagesRead)),
			handlers.Page.ListPages,
		)
		authorAPI.POST("/pages",
			middleware.RequireAnyPermission(string(model.PermissionPagesWriteOwn), string(model.PermissionPagesWriteAll)),
			handlers.Page.CreatePage,
		)
		authorAPI.GET("/pages/:page_id",
			middleware.RequirePermission(string(model.PermissionPagesRead)),
			handlers.Page.GetPage,
		)
		authorAPI.PATCH("/pages/:page_id",
			middleware.RequireAnyPermission(string(model.PermissionPagesWriteOwn), string(model.PermissionPagesWriteAll)),
			handlers.Page.UpdatePage,
		)
		authorAPI.DELETE("/pages/:page_id",
			middleware.RequireAnyPermission(string(model.PermissionPagesWriteOwn), string(model.PermissionPagesWriteAll)),
			handlers.Page.DeletePage,
		)
		authorAPI.POST("/pages/:page_id/publish",
			middleware.RequirePermission(string(model.PermissionPagesPublish)),
			handlers.Page.PublishPage,
		)
		authorAPI.POST("/pages/:page_id/archive",
			middleware.RequirePermission(string(model.PermissionPagesPublish)),
			handlers.Page.ArchivePage,
		)
		authorAPI.POST("/pages/:page_id/refresh-cache",
			middleware.RequirePermission(string(model.PermissionPagesPublish)),
			handlers.Page.RefreshPageCache,
		)
		authorAPI.GET("/pages/:page_id/revisions",
			middleware.RequirePermission(string(model.PermissionRevisionsRead)),
			handlers.Page.ListRevisions,
		)

		// Question management (REST path; the editor stream has its own)
		authorAPI.GET("/pages/:page_id/questions",
			middleware.RequirePermission(string(model.PermissionPagesRead)),
			handlers.Question.ListQuestions,
		)
		authorAPI.PUT("/pages/:page_id/questions",
			middleware.RequireAnyPermission(string(model.PermissionPagesWriteOwn), string(model.PermissionPagesWriteAll)),
			handlers.Question.ReplaceQuestions,
		)

		// Author account management
		authorAPI.GET("/authors",
			middleware.RequirePermission(string(model.PermissionAuthorsRead)),
			handlers.Author.ListAuthors,
		)
		authorAPI.POST("/authors",
			middleware.RequirePermission(string(model.PermissionAuthorsWrite)),
			handlers.Author.CreateAuthor,
		)
		authorAPI.PATCH("/authors/:id",
			middleware.RequirePermission(string(model.PermissionAuthorsWrite)),
			handlers.Author.UpdateAuthor,
		)
		authorAPI.DELETE("/authors/:id",
			middleware.RequirePermission(string(model.PermissionAuthorsWrite)),
			handlers.Author.DeleteAuthor,
		)

		// Role management. Listing doubles as the role picker on the
		// author form, so authors:read is enough to see it.
		authorAPI.GET("/roles",
			middleware.RequireAnyPermission(string(model.PermissionAuthorsRead), string(model.PermissionRolesRead)),
			handlers.Role.ListRoles,
		)
		authorAPI.GET("/roles/permissions",
			middleware.RequirePermission(string(model.PermissionRolesRead)),
			handlers.Role.GetPermissions,
		)
		authorAPI.GET("/roles/:id",
			middleware.RequirePermission(string(model.PermissionRolesRead)),
			handlers.Role.GetRole,
		)
		authorAPI.POST("/roles",
			middleware.RequirePermission(string(model.PermissionRolesWrite)),
			handlers.Role.CreateRole,
		)
		authorAPI.PUT("/roles/:id",
			middleware.RequirePermission(string(model.PermissionRolesWrite)),
			handlers.Role.UpdateRole,
		)
		authorAPI.DELETE("/roles/:id",
			middleware.RequirePermission(string(model.PermissionRolesWrite)),
			handlers.Role.DeleteRole,
		)

		// Activity feed
		authorAPI.GET("/activity",
			middleware.RequirePermission(string(model.PermissionActivityRead)),
			handlers.Activity.ListActivity,
		)
		authorAPI.GET("/activity/stream",
			middleware.RequirePermission(string(model.PermissionActivityRead)),
			handlers.Activity.StreamActivity,
		)

		// Dashboard and live metrics, open to any signed-in author
		authorAPI.GET("/dashboard", handlers.Dashboard.GetDashboardData)
		authorAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)

		// Site settings
		settingsGroup := authorAPI.Group("/settings")
		{
			settingsGroup.GET("", middleware.RequirePermission(string(model.PermissionSettingsRead)), handlers.Setting.GetAllSettings)
			settingsGroup.PUT("", middleware.RequirePermission(string(model.PermissionSettingsWrite)), handlers.Setting.UpdateSettings)
		}

		// Collections
		collectionsGroup := authorAPI.Group("/collections")
		{
			collectionsGroup.GET("", middleware.RequirePermission(string(model.PermissionCollectionsRead)), handlers.Collection.GetAll)
			collectionsGroup.POST("", middleware.RequirePermission(string(model.PermissionCollectionsWrite)), handlers.Collection.Create)
			collectionsGroup.PUT("/:id", middleware.RequirePermission(string(model.PermissionCollectionsWrite)), handlers.Collection.Update)
			collectionsGroup.DELETE("/:id", middleware.RequirePermission(string(model.PermissionCollectionsWrite)), handlers.Collection.Delete)
		}
	}

	return router
}

// corsOptions restricts origins to the configured list when one is
// set. An empty list means a dev setup, where any origin may connect.
func corsOptions(cfg *config.Config) cors.Config {
	opts := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		opts.AllowOrigins = cfg.AllowedOrigins
	} else {
		opts.AllowAllOrigins = true
	}
	opts.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	opts.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	opts.ExposeHeaders = []string{"X-Request-ID"}
	opts.MaxAge = 12 * time.Hour
	return opts
}
