package router

import (
	"groupfinder/internal/authz"
	"groupfinder/internal/config"
	"groupfinder/internal/handlers"
	"groupfinder/internal/middleware"
	"groupfinder/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sessionName = "groupfinder_session"

// Deps is everything the routes need from main.
type Deps struct {
	DB         *gorm.DB
	Log        *zap.Logger
	Config     *config.Config
	Authorizer authz.Authorizer
	Ranking    services.Rescorer
	Limiter    *middleware.IPRateLimiter
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	cfg := d.Config

	// Services
	notifier := services.NewNotificationService(d.DB)
	reputation := services.NewReputationService(d.DB, d.Log, notifier)
	aggregator := services.NewAggregator(d.DB, d.Log, reputation, d.Ranking)
	verification := services.NewVerificationService(d.DB, d.Log, reputation, notifier)
	groups := services.NewGroupService(d.DB, d.Log, reputation, notifier, d.Ranking)
	reports := services.NewReportService(d.DB, d.Log, reputation, notifier)
	users := services.NewUserService(d.DB, d.Log, reputation)

	// Handlers
	authHandler := handlers.NewAuthHandler(users, services.NewCaptchaService(), []byte(cfg.JWTSecret), cfg.TokenTTL, d.Log)
	groupHandler := handlers.NewGroupHandler(groups, aggregator, verification, cfg.SiteURL, d.Log)
	voteHandler := handlers.NewVoteHandler(aggregator, d.Log)
	reviewHandler := handlers.NewReviewHandler(aggregator, d.Authorizer, d.Log)
	verificationHandler := handlers.NewVerificationHandler(verification, d.Log)
	reputationHandler := handlers.NewReputationHandler(reputation, d.Log)
	reportHandler := handlers.NewReportHandler(reports, d.Log)
	adminHandler := handlers.NewAdminHandler(reports, aggregator, users, d.Log)
	notificationHandler := handlers.NewNotificationHandler(notifier, d.Log)
	userHandler := handlers.NewUserHandler(users, reputation, groups, d.Log)
	seoHandler := handlers.NewSEOHandler(groups, cfg.SiteURL, d.Log)

	// Middleware
	r.Use(middleware.SecurityHeaders())
	r.Use(sessions.Sessions(sessionName, cookie.NewStore([]byte(cfg.SessionSecret))))
	r.Use(middleware.LoadUser(d.DB, []byte(cfg.JWTSecret)))

	limited := middleware.RateLimit(d.Limiter)
	moderate := middleware.AdminRequired(d.Authorizer, authz.Moderate)
	manageReputation := middleware.AdminRequired(d.Authorizer, authz.ManageReputation)

	// 公共页面 (Public pages)
	r.GET("/", groupHandler.Index)
	r.GET("/g/:gid", groupHandler.Detail)
	r.GET("/u/:id", userHandler.Profile)
	r.GET("/robots.txt", seoHandler.RobotsTxt)
	r.GET("/sitemap.xml", seoHandler.SitemapXML)

	r.GET("/signup", authHandler.ShowRegister)
	r.POST("/signup", limited, authHandler.Register)
	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", limited, authHandler.Login)
	r.GET("/logout", authHandler.Logout)

	dashboard := r.Group("/dashboard")
	dashboard.Use(middleware.AuthRequired())
	{
		dashboard.GET("/reputation", userHandler.Reputation)
	}

	admin := r.Group("/admin")
	admin.Use(moderate)
	{
		admin.GET("/verification", verificationHandler.Console)
	}

	// JSON API
	api := r.Group("/api")
	api.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: cfg.CORSOrigin != "*",
	}))
	{
		api.POST("/tokens", limited, authHandler.CreateToken)
		api.GET("/captcha", authHandler.RefreshCaptcha)

		api.GET("/groups", groupHandler.List)
		api.GET("/groups/:id", groupHandler.Get)
		api.GET("/groups/:id/reviews", reviewHandler.List)
		api.GET("/groups/:id/verification", verificationHandler.Get)
		api.GET("/categories", groupHandler.Categories)
		api.GET("/badges", reputationHandler.Badges)
		api.GET("/reputation", reputationHandler.Get)
	}

	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/groups", limited, groupHandler.Submit)
		authorized.POST("/groups/:id/vote", limited, voteHandler.Vote)
		authorized.GET("/groups/:id/vote", voteHandler.MyVote)
		authorized.POST("/groups/:id/review", limited, reviewHandler.Submit)
		authorized.DELETE("/reviews/:id", reviewHandler.Delete)
		authorized.POST("/groups/:id/report", limited, reportHandler.Create)
		authorized.POST("/groups/:id/save", groupHandler.Save)
		authorized.GET("/saved", groupHandler.Saved)
		authorized.PUT("/profile", userHandler.UpdateProfile)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)
	}

	// 管理接口 (Admin API)
	api.PUT("/groups/:id/verification", moderate, verificationHandler.Set)
	api.POST("/reputation", manageReputation, reputationHandler.Award)
	api.POST("/user-badges", manageReputation, reputationHandler.AwardBadge)
	api.DELETE("/user-badges", manageReputation, reputationHandler.RevokeBadge)

	adminAPI := api.Group("/admin")
	adminAPI.Use(moderate)
	{
		adminAPI.GET("/queue", verificationHandler.Queue)
		adminAPI.GET("/reports", adminHandler.ListReports)
		adminAPI.POST("/reports/:id/resolve", adminHandler.ResolveReport)
		adminAPI.POST("/groups/:id/recount", adminHandler.Recount)
		adminAPI.POST("/users/:id/recalculate", reputationHandler.Recalculate)
		adminAPI.POST("/users/:id/punish", adminHandler.PunishUser)
	}
}
