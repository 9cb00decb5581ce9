package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"groupfinder/internal/authz"
	"groupfinder/internal/config"
	"groupfinder/internal/db"
	"groupfinder/internal/logging"
	"groupfinder/internal/middleware"
	"groupfinder/internal/models"
	"groupfinder/internal/router"
	"groupfinder/internal/services"
	"groupfinder/internal/utils"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	logger, err := logging.New(cfg.GinMode, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Initialize Database
	gdb, err := db.Open(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	if err := db.Migrate(gdb); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}
	db.Seed(gdb, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化异步排名服务
	ranking := services.NewRankingService(gdb, logger)
	ranking.Start(ctx)
	ranking.StartScheduledRescore(ctx)

	limiter := middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Cleanup(ctx, 10*time.Minute, 30*time.Minute)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), gzip.Gzip(gzip.DefaultCompression))
	r.HTMLRender = loadTemplates(cfg.TemplatesDir, logger)
	r.Static("/static", "./web/static")

	router.RegisterRoutes(r, router.Deps{
		DB:         gdb,
		Log:        logger,
		Config:     cfg,
		Authorizer: authz.NewRoleAuthorizer(cfg.AdminEmailDomain),
		Ranking:    ranking,
		Limiter:    limiter,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("GroupFinder server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exiting")
}

func loadTemplates(templatesDir string, logger *zap.Logger) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}
	components, err := filepath.Glob(templatesDir + "/components/*.html")
	if err != nil {
		panic(err)
	}

	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+len(components)+1)
		files = append(files, layouts...)
		files = append(files, components...)
		files = append(files, view)
		return files
	}

	funcMap := template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
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
		"timeAgo": func(t interface{}) string {
			var timeVal time.Time
			switch v := t.(type) {
			case time.Time:
				timeVal = v
			case *time.Time:
				if v == nil {
					return ""
				}
				timeVal = *v
			default:
				return ""
			}

			seconds := int(time.Since(timeVal).Seconds())
			switch {
			case seconds < 60:
				return "just now"
			case seconds < 3600:
				return fmt.Sprintf("%dm ago", seconds/60)
			case seconds < 86400:
				return fmt.Sprintf("%dh ago", seconds/3600)
			case seconds < 2592000:
				return fmt.Sprintf("%dd ago", seconds/86400)
			case seconds < 31536000:
				return fmt.Sprintf("%dmo ago", seconds/2592000)
			}
			return fmt.Sprintf("%dy ago", seconds/31536000)
		},
		"gt": func(a, b int) bool {
			return a > b
		},
		"stars": func(avg float64) string {
			return fmt.Sprintf("%.1f", avg)
		},
		"levelName": utils.LevelName,
		"statusLabel": func(s models.VerificationStatus) string {
			switch s {
			case models.VerificationNeedsReview:
				return "needs review"
			default:
				return string(s)
			}
		},
		"urlquery": func(s string) string {
			return url.QueryEscape(s)
		},
	}

	views := []string{
		"auth/login.html",
		"auth/register.html",
		"group/list.html",
		"group/detail.html",
		"user/public.html",
		"dashboard/reputation.html",
		"admin/verification.html",
		"error.html",
	}
	for _, name := range views {
		view := filepath.Join(templatesDir, "views", name)
		if _, err := os.Stat(view); err != nil {
			logger.Warn("template missing", zap.String("view", view), zap.Error(err))
			continue
		}
		r.AddFromFilesFuncs(name, funcMap, assemble(view)...)
	}

	return r
}
