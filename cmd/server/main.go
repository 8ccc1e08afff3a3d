package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/cache"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/config"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/handlers"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/handlers/ws"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/httpx"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/lock"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/logging"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/mailer"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/middleware"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/repository"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/service"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/storage"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	db, err := repository.InitDB(cfg.DSN(), !cfg.IsProduction())
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Redis is optional: without it locks, presence and fan-out stay in-process.
	redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := redisCache.Ping(); err != nil {
		log.Warn("redis unavailable, running without cache", zap.Error(err))
		redisCache = nil
	} else {
		log.Info("redis connected", zap.String("addr", cfg.RedisAddr))
	}

	messageCache := cache.NewMessageCache(redisCache)
	userCache := cache.NewUserCache(redisCache)

	var locker lock.Locker = lock.NewKeyedMutex()
	if redisCache != nil {
		locker = lock.NewRedisLocker(redisCache.Client(), cfg.LockTTL, log)
	}

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	chatRepo := repository.NewChatMessageRepository(db)
	tokenRepo := repository.NewPasswordResetTokenRepository(db)

	// Media store (best-effort; upload endpoints fail if missing).
	var (
		media   storage.MediaStore
		s3Store *storage.S3Storage
	)
	switch cfg.MediaBackend {
	case "supabase":
		st, err := storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)
		if err != nil {
			log.Warn("supabase storage not configured", zap.Error(err))
		} else {
			media = st
		}
	default:
		st, err := storage.NewS3Storage(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
		}, mediaBaseURL(cfg))
		if err != nil {
			log.Warn("s3 storage not configured", zap.Error(err))
		} else {
			media, s3Store = st, st
			log.Info("s3 storage initialized", zap.String("bucket", cfg.S3Bucket))
		}
	}

	var mail mailer.Mailer = mailer.NewLogMailer(log, cfg.FrontendURL)
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			From:        cfg.SMTPFrom,
			FrontendURL: cfg.FrontendURL,
		})
	}

	hub := ws.NewHub(ws.DefaultHubConfig(), log.Named("ws"))
	defer hub.Close()
	if userCache.Enabled() {
		hub.SetPresence(userCache)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if redisCache != nil {
		relay := ws.NewRelay(redisCache, ws.DefaultRelayChannel, hub, log.Named("relay"))
		hub.SetFanout(relay)
		go func() {
			if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("hub relay stopped", zap.Error(err))
			}
		}()
	}

	authService := service.NewAuthService(userRepo, tokenRepo, mail, service.AuthConfig{
		JWTSecret: cfg.JWTSecret,
		JWTTTL:    cfg.JWTTTL,
		ResetTTL:  cfg.ResetTokenTTL,
	}, log.Named("auth"))
	userService := service.NewUserService(userRepo)
	avatarService := service.NewAvatarService(userRepo, media, log.Named("avatar"))
	courseService := service.NewCourseService(courseRepo, enrollmentRepo, userRepo, log.Named("course"))
	groupService := service.NewGroupService(groupRepo, courseRepo, enrollmentRepo, userRepo, locker, log.Named("group"))
	groupService.SetRealtime(hub, messageCache)
	chatService := service.NewChatService(chatRepo, groupRepo, userRepo, hub, log.Named("chat"))
	chatService.SetHistoryCache(messageCache)
	chatService.SetMediaStore(media)
	if userCache.Enabled() {
		chatService.SetPresence(userCache)
	} else {
		chatService.SetPresence(hub)
	}

	if cfg.SeedCourses {
		if _, err := courseService.SeedDefaults(); err != nil {
			log.Warn("seeding courses failed", zap.Error(err))
		}
	}

	authHandler := handlers.NewAuthHandler(authService, cfg.IsProduction(), log)
	userHandler := handlers.NewUserHandler(userService, log)
	avatarHandler := handlers.NewAvatarHandler(avatarService, log)
	courseHandler := handlers.NewCourseHandler(courseService, groupService, log)
	groupHandler := handlers.NewGroupHandler(groupService, log)
	chatHandler := handlers.NewChatHandler(chatService, cfg.MaxUploadBytes, log)
	mediaHandler := handlers.NewMediaHandler(s3Store, log)
	wsHandler := handlers.NewWebSocketHandler(hub, chatService, log.Named("ws"), cfg.WSDebug)

	origins := middleware.SplitCSV(cfg.AllowedOrigins)

	app := fiber.New(fiber.Config{
		AppName: cfg.AppName,
		// Chat uploads plus multipart overhead.
		BodyLimit: int(cfg.MaxUploadBytes) + 1024*1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return httpx.FromError(c, log, err)
		},
	})

	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + middleware.CSRFHeader,
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowCredentials: cfg.AllowedOrigins != "" && cfg.AllowedOrigins != "*",
	}))

	api := app.Group("/api", middleware.OriginAllowed(origins))
	auth := api.Group("/auth", limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/forgot-password", authHandler.ForgotPassword)
	auth.Post("/reset-password", authHandler.ResetPassword)
	auth.Post("/logout", middleware.CSRFRequired(cfg.CSRFMode, origins), authHandler.Logout)

	protected := api.Group("/", middleware.AuthRequired(authService), middleware.CSRFRequired(cfg.CSRFMode, origins))
	protected.Put("/auth/password", authHandler.UpdatePassword)

	protected.Get("/users/me", userHandler.GetCurrentUser)
	protected.Put("/users/me", userHandler.UpdateProfile)
	protected.Post(
		"/users/me/avatar",
		limiter.New(limiter.Config{
			Max:          10,
			Expiration:   10 * time.Minute,
			KeyGenerator: perUserKey("avatar"),
		}),
		avatarHandler.UploadMyAvatar,
	)
	protected.Delete("/users/me/avatar", avatarHandler.DeleteMyAvatar)
	protected.Get("/users/:userId", userHandler.GetUser)
	protected.Get("/media/*", mediaHandler.GetMedia)

	// Static segments are registered ahead of :courseId.
	protected.Get("/courses", courseHandler.ListCourses)
	protected.Get("/courses/enrolled", courseHandler.MyCourses)
	protected.Get("/courses/peers", courseHandler.MyPeers)
	protected.Get("/courses/:courseId", courseHandler.GetCourse)
	protected.Get("/courses/:courseId/groups", courseHandler.CourseGroups)
	protected.Get("/courses/:courseId/peers", courseHandler.CoursePeers)
	protected.Post("/courses/:courseId/enroll", courseHandler.Enroll)
	protected.Delete("/courses/:courseId/enroll", courseHandler.Unenroll)
	admin := protected.Group("/admin", middleware.RequireRole("admin"))
	admin.Post("/courses", courseHandler.CreateCourse)
	admin.Put("/courses/:courseId", courseHandler.UpdateCourse)
	admin.Delete("/courses/:courseId", courseHandler.DeleteCourse)

	protected.Get("/groups", groupHandler.ListGroups)
	protected.Post("/groups", groupHandler.CreateGroup)
	protected.Get("/groups/mine", groupHandler.GetMyGroups)
	protected.Get("/groups/recommended", groupHandler.GetRecommendedGroups)
	protected.Get("/groups/:groupId", groupHandler.GetGroup)
	protected.Put("/groups/:groupId", groupHandler.UpdateGroup)
	protected.Delete("/groups/:groupId", groupHandler.DeleteGroup)
	protected.Post("/groups/:groupId/join", groupHandler.JoinGroup)
	protected.Post("/groups/:groupId/leave", groupHandler.LeaveGroup)
	protected.Get("/groups/:groupId/membership", groupHandler.GetMembership)
	protected.Get("/groups/:groupId/members", groupHandler.GetGroupMembers)
	protected.Get("/groups/:groupId/requests", groupHandler.GetPendingRequests)
	protected.Put("/groups/:groupId/members/:userId", groupHandler.UpdateMemberStatus)
	protected.Delete("/groups/:groupId/members/:userId", groupHandler.RemoveMember)

	protected.Get("/chat/:groupId/messages", chatHandler.GetMessages)
	protected.Post("/chat/:groupId/messages", chatHandler.SendMessage)
	protected.Post("/chat/:groupId/files", chatHandler.ShareFile)
	protected.Post("/chat/:groupId/links", chatHandler.ShareLink)
	protected.Post(
		"/chat/:groupId/upload",
		limiter.New(limiter.Config{
			Max:          30,
			Expiration:   time.Minute,
			KeyGenerator: perUserKey("upload"),
		}),
		chatHandler.UploadFile,
	)
	protected.Get("/chat/:groupId/online", chatHandler.GetOnlineMembers)

	app.Use(
		"/ws",
		middleware.OriginAllowed(origins),
		middleware.WebSocketAuth(authService),
		func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	app.Get("/health", func(c *fiber.Ctx) error {
		online, _ := userCache.GetOnlineUsers()
		return c.JSON(fiber.Map{
			"status":       "ok",
			"connections":  hub.Count(),
			"online_users": len(online),
			"redis":        redisCache != nil,
		})
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	log.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Environment))
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}

func perUserKey(prefix string) func(*fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		if uid, err := httpx.LocalUint(c, "userID"); err == nil {
			return prefix + ":" + strconv.FormatUint(uint64(uid), 10)
		}
		return c.IP()
	}
}

// mediaBaseURL is the public prefix of the media route.
func mediaBaseURL(cfg *config.Config) string {
	if cfg.PublicAPIBaseURL != "" {
		return cfg.PublicAPIBaseURL + "/media"
	}
	return "http://localhost:" + cfg.Port + "/api/media"
}
