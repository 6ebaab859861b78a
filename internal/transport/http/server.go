package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"staffqa/internal/ai"
	appsvc "staffqa/internal/app"
	"staffqa/internal/bootstrap"
	"staffqa/internal/cache"
	"staffqa/internal/model"
	"staffqa/internal/repository"
	"staffqa/internal/transport/http/handler"
	"staffqa/internal/transport/http/middleware"
	"staffqa/web"
)

func NewRouter(app *bootstrap.App) (*gin.Engine, error) {
	cfg := app.Config
	logger := app.Logger

	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	static, err := web.Static()
	if err != nil {
		return nil, err
	}

	gin.SetMode(cfg.App.GinMode)
	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.MaxMultipartMemory = 8 << 20
	router.Use(
		middleware.Recovery(logger),
		middleware.RequestLogger(logger),
		middleware.Metrics(app.Metrics),
		middleware.NoCache(),
	)

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})))
	router.StaticFS("/static", static)

	userRepo := repository.NewUserRepository(app.DB)
	tokenRepo := repository.NewOAuthTokenRepository(app.DB)
	docRepo := repository.NewDocumentRepository(app.DB)
	messageRepo := repository.NewChatMessageRepository(app.DB)
	analyticsRepo := repository.NewAnalyticsRepository(app.DB)

	authService := appsvc.NewAuthService(
		userRepo,
		tokenRepo,
		cache.NewSessionStore(app.Redis),
		appsvc.AuthOptions{
			SessionSecret: cfg.Auth.SessionSecret,
			SessionTTL:    time.Duration(cfg.Auth.SessionTTLMinutes) * time.Minute,
			AdminEmails:   cfg.Auth.AdminEmails,
			PasswordLogin: cfg.Auth.PasswordLogin,
			OAuth: appsvc.OAuthOptions{
				Provider:     cfg.OAuth.Provider,
				ClientID:     cfg.OAuth.ClientID,
				ClientSecret: cfg.OAuth.ClientSecret,
				AuthURL:      cfg.OAuth.AuthURL,
				TokenURL:     cfg.OAuth.TokenURL,
				UserInfoURL:  cfg.OAuth.UserInfoURL,
				RevokeURL:    cfg.OAuth.RevokeURL,
				RedirectURL:  cfg.OAuth.RedirectURL,
				Scopes:       cfg.OAuth.Scopes,
			},
		},
		logger,
	)
	llmClient := ai.NewClient(ai.ChatConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
	docService := appsvc.NewDocumentService(docRepo, app.Store, cfg.MaxUploadBytes(), app.Events, app.Metrics, logger)
	chatService := appsvc.NewChatService(
		docRepo,
		messageRepo,
		llmClient,
		cache.NewHistoryCache(app.Redis, time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second),
		app.Events,
		app.Metrics,
		logger,
		appsvc.ChatOptions{
			HistoryMessages:  cfg.LLM.HistoryMessages,
			PerDocumentChars: cfg.LLM.PerDocumentChars,
			ContextBudget:    cfg.LLM.ContextBudgetChars,
		},
	)
	analyticsService := appsvc.NewAnalyticsService(analyticsRepo, messageRepo, docRepo)
	userService := appsvc.NewUserService(userRepo, messageRepo, analyticsRepo, cfg.Auth.AdminEmails, logger)

	cookie := middleware.SessionCookie{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure}
	authHandler := handler.NewAuthHandler(authService, cookie, logger)
	chatHandler := handler.NewChatHandler(chatService, logger)
	docHandler := handler.NewDocumentHandler(docService, logger)
	adminHandler := handler.NewAdminHandler(analyticsService, docService, userService, logger)

	router.Use(middleware.LoadSession(authService, cookie, logger))
	router.NoRoute(handler.NotFound)

	router.GET("/", handler.Landing)
	router.GET("/login", authHandler.LoginPage)
	router.POST("/login", authHandler.Login)
	router.GET("/register", authHandler.RegisterPage)
	router.POST("/register", authHandler.Register)
	router.GET("/auth/login", authHandler.OAuthStart)
	router.GET("/auth/callback", authHandler.OAuthCallback)

	member := router.Group("/", middleware.RequireLogin())
	member.GET("/logout", authHandler.Logout)
	member.GET("/chat", chatHandler.Page)
	member.GET("/documents", docHandler.List)
	member.GET("/profile", adminHandler.Profile)

	api := router.Group("/api", middleware.RequireLogin())
	api.POST("/chat", chatHandler.Ask)

	admin := router.Group("/", middleware.RequireRole(model.RoleAdmin))
	admin.GET("/upload", docHandler.UploadPage)
	admin.POST("/upload", docHandler.Upload)
	admin.POST("/documents/:id/delete", docHandler.Delete)
	admin.GET("/admin", adminHandler.Dashboard)
	admin.GET("/users", adminHandler.Users)
	admin.POST("/admin/users/:id/toggle-admin", adminHandler.ToggleAdmin)

	return router, nil
}
