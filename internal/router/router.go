package router

import (
	"net/http"

	"textilserver/internal/config"
	"textilserver/internal/db"
	"textilserver/internal/handlers"
	"textilserver/internal/middleware"
	"textilserver/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	Config   *config.Config
	Gateway  *db.Gateway
	Sessions sessions.Store
	Ledger   *services.LedgerService
	Listings *services.ListingService
	Accounts *services.AccountService
	Stats    *services.StatsService
	Search   *services.SearchService
	Captcha  *services.CaptchaService
	Limiter  *middleware.IPRateLimiter
	Clock    services.Clock
	Log      zerolog.Logger
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Global middleware
	r.Use(
		middleware.RequestID(d.Log),
		middleware.RequestLogger(d.Log),
		middleware.Metrics(),
		gin.Recovery(),
		sessions.Sessions(d.Config.Session.Name, d.Sessions),
		middleware.LoadUser(d.Accounts, d.Ledger, d.Log),
	)

	// Handlers
	authHandler := handlers.NewAuthHandler(d.Accounts, d.Captcha, d.Log)
	listingHandler := handlers.NewListingHandler(d.Listings, d.Accounts, d.Clock, d.Log)
	profileHandler := handlers.NewProfileHandler(d.Accounts, d.Ledger, d.Listings, d.Clock, d.Log)
	adminHandler := handlers.NewAdminHandler(d.Stats, d.Listings, d.Ledger, d.Accounts, d.Log)
	searchHandler := handlers.NewSearchHandler(d.Search, d.Log)
	healthHandler := handlers.NewHealthHandler(d.Gateway)
	seoHandler := handlers.NewSEOHandler(d.Listings, d.Config.App.SiteURL, d.Log)

	limit := middleware.RateLimit(d.Limiter, d.Log)

	// Public routes
	r.GET("/", listingHandler.Home)
	r.GET("/listings", listingHandler.List)
	r.GET("/listings/:id", listingHandler.Detail)

	r.GET("/signup", authHandler.ShowRegister)
	r.POST("/signup", limit, authHandler.Register)
	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", limit, authHandler.Login)
	r.GET("/logout", authHandler.Logout)

	r.GET("/robots.txt", seoHandler.RobotsTxt)
	r.GET("/sitemap.xml", seoHandler.SitemapXML)

	r.GET("/api/search", searchHandler.API)
	r.GET("/healthz", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Member area
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/profile", profileHandler.Overview)
		authorized.POST("/profile/membership", profileHandler.PurchaseMembership)
		authorized.GET("/profile/points", profileHandler.Points)
		authorized.GET("/listings/new", listingHandler.ShowCreate)
		authorized.POST("/listings/new", listingHandler.Create)
		authorized.GET("/my/listings", listingHandler.Mine)
	}

	// Administration
	admin := r.Group("/admin")
	admin.Use(middleware.ModeratorRequired())
	{
		admin.GET("", adminHandler.Dashboard)
		admin.POST("/listings/:id/status", adminHandler.SetListingStatus)
		admin.POST("/users/:id/points", middleware.AdminRequired(), adminHandler.GrantPoints)
		admin.POST("/users/:id/status", middleware.AdminRequired(), adminHandler.SetUserStatus)
	}

	r.NoRoute(func(c *gin.Context) {
		handlers.RenderError(c, http.StatusNotFound, "Page not found")
	})
}
