package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"textilserver/internal/config"
	"textilserver/internal/db"
	"textilserver/internal/logger"
	"textilserver/internal/middleware"
	"textilserver/internal/router"
	"textilserver/internal/services"
	"textilserver/internal/utils"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.App.Env, os.Stdout)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Database
	gw, err := db.Open(cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database initialisation failed")
	}
	defer gw.Close()

	cache, err := utils.NewCache(1024)
	if err != nil {
		log.Fatal().Err(err).Msg("cache initialisation failed")
	}

	// Services
	clock := services.Clock(services.SystemClock)
	ledger := services.NewLedgerService(gw, cfg.Pricing, clock, log)
	listings := services.NewListingService(gw, ledger, cfg.Pricing, clock, log)
	accounts := services.NewAccountService(gw, ledger, clock, log)
	stats := services.NewStatsService(gw, cache, clock, log)
	search := services.NewSearchService(gw, cache, clock)
	expiry := services.NewExpiryService(gw, cfg.Expiry.SweepInterval, clock, log)

	r := gin.New()

	// Setup Sessions
	store := cookie.NewStore([]byte(cfg.Session.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.MaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	r.HTMLRender = loadTemplates(cfg.Server.TemplatesDir, templateFuncs(cfg, clock))
	r.Static("/static", cfg.Server.StaticDir)

	router.RegisterRoutes(r, router.Deps{
		Config:   cfg,
		Gateway:  gw,
		Sessions: store,
		Ledger:   ledger,
		Listings: listings,
		Accounts: accounts,
		Stats:    stats,
		Search:   search,
		Captcha:  services.NewCaptchaService(0),
		Limiter:  middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Clock:    clock,
		Log:      log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go expiry.Run(ctx)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("env", cfg.App.Env).Msg("TextilServer starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}

func templateFuncs(cfg *config.Config, now services.Clock) template.FuncMap {
	return template.FuncMap{
		"dict": func(values ...any) (map[string]any, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"add": func(a, b int) int {
			return a + b
		},
		"siteName": func() string {
			return cfg.App.SiteName
		},
		"timeAgo": func(t time.Time) string {
			return utils.TimeAgo(t, now())
		},
		"date": func(t any) string {
			switch v := t.(type) {
			case time.Time:
				return v.Format("02.01.2006")
			case *time.Time:
				if v != nil {
					return v.Format("02.01.2006")
				}
			}
			return "-"
		},
		"formatPrice": func(price *float64, currency any) string {
			return utils.FormatPrice(price, fmt.Sprint(currency))
		},
		"formatSalary": func(from, to *float64, currency any) string {
			return utils.FormatSalary(from, to, fmt.Sprint(currency))
		},
		"statusLabel": func(status any) string {
			return services.StatusLabel(fmt.Sprint(status))
		},
		"markdown": utils.RenderMarkdown,
		"excerpt": func(s string, limit int) string {
			return utils.Excerpt(string(utils.RenderMarkdown(s)), limit)
		},
	}
}

func loadTemplates(templatesDir string, funcMap template.FuncMap) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}

	includes, err := filepath.Glob(templatesDir + "/includes/*.html")
	if err != nil {
		panic(err)
	}

	// "listing/list.html" -> [base, includes..., view]
	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+len(includes)+1)
		files = append(files, layouts...)
		files = append(files, includes...)
		files = append(files, templatesDir+"/views/"+view)
		return files
	}

	views := []string{
		"home.html",
		"error.html",
		"auth/login.html",
		"auth/register.html",
		"listing/list.html",
		"listing/detail.html",
		"listing/create.html",
		"listing/mine.html",
		"profile/overview.html",
		"profile/points.html",
		"admin/dashboard.html",
	}
	for _, v := range views {
		r.AddFromFilesFuncs(v, funcMap, assemble(v)...)
	}

	return r
}
