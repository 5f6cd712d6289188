package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/damoang/angple-chat/internal/config"
	"github.com/damoang/angple-chat/internal/domain"
	"github.com/damoang/angple-chat/internal/handler"
	"github.com/damoang/angple-chat/internal/middleware"
	"github.com/damoang/angple-chat/internal/repository"
	"github.com/damoang/angple-chat/internal/routes"
	"github.com/damoang/angple-chat/internal/service"
	pkgcache "github.com/damoang/angple-chat/pkg/cache"
	"github.com/damoang/angple-chat/pkg/jwt"
	pkglogger "github.com/damoang/angple-chat/pkg/logger"
	pkgredis "github.com/damoang/angple-chat/pkg/redis"
	pkgstorage "github.com/damoang/angple-chat/pkg/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	dotenvFiles := config.LoadDotEnv()

	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pkglogger.InitStructured(cfg.Server.Env)
	logg := pkglogger.GetLogger()
	logg.Info().
		Str("env", cfg.Server.Env).
		Strs("dotenv", dotenvFiles).
		Msg("starting angple-chat")

	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.Conversation{},
		&domain.Participant{},
		&domain.Message{},
		&domain.Reaction{},
	); err != nil {
		logg.Warn().Err(err).Msg("auto-migration failed")
	}

	// Redis is optional: the direct-pair cache, typing and presence degrade
	// gracefully when it is down.
	redisClient, err := pkgredis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
	)
	if err != nil {
		logg.Warn().Err(err).Msg("redis unavailable, continuing without cache")
		redisClient = nil
	}
	cacheService := pkgcache.NewService(redisClient)

	var blobStore service.BlobStore
	if cfg.Storage.Bucket != "" {
		s3Client, err := pkgstorage.NewS3Client(pkgstorage.S3Config{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			Bucket:          cfg.Storage.Bucket,
			CDNURL:          cfg.Storage.CDNURL,
			BasePath:        cfg.Storage.BasePath,
			ForcePathStyle:  cfg.Storage.ForcePathStyle,
		})
		if err != nil {
			log.Fatalf("Failed to init S3 storage: %v", err)
		}
		blobStore = s3Client
	} else {
		logg.Warn().Msg("no storage bucket configured, media cleanup disabled")
		blobStore = noopBlobStore{}
	}

	jwtManager := jwt.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		time.Duration(cfg.JWT.ExpiryMinutes)*time.Minute,
	)

	// Repositories
	convRepo := repository.NewConversationRepository(db)
	partRepo := repository.NewParticipantRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Services
	conversationService := service.NewConversationService(convRepo, partRepo, msgRepo, userRepo, cacheService)
	messageService := service.NewMessageService(msgRepo, convRepo, partRepo, reactionRepo, userRepo, blobStore)
	moderationService := service.NewModerationService(convRepo, partRepo, msgRepo, reactionRepo, userRepo, cacheService, blobStore)
	presenceService := service.NewPresenceService(partRepo, cacheService)

	// Handlers
	conversationHandler := handler.NewConversationHandler(conversationService, moderationService)
	messageHandler := handler.NewMessageHandler(messageService)
	presenceHandler := handler.NewPresenceHandler(presenceService)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID"},
		MaxAge:           86400,
	}))
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "angple-chat",
			"redis":   cacheService.IsAvailable(),
			"time":    time.Now().Unix(),
		})
	})

	routes.Setup(router, conversationHandler, messageHandler, presenceHandler, jwtManager)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logg.Info().Str("addr", addr).Msg("listening")
	if err := router.Run(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func configPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	mysqlCfg := mysqldriver.NewConfig()
	mysqlCfg.User = cfg.Database.User
	mysqlCfg.Passwd = cfg.Database.Password
	mysqlCfg.Net = "tcp"
	mysqlCfg.Addr = fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port)
	mysqlCfg.DBName = cfg.Database.Name
	mysqlCfg.ParseTime = true
	mysqlCfg.Loc = time.Local
	mysqlCfg.Params = map[string]string{"charset": "utf8mb4"}
	dsn := mysqlCfg.FormatDSN()

	logMode := gormlogger.Warn
	if cfg.Server.Env == "local" || cfg.Server.Env == "development" {
		logMode = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// noopBlobStore stands in when no bucket is configured; deletes are skipped
type noopBlobStore struct{}

func (noopBlobStore) Delete(_ context.Context, _ string) error { return nil }
func (noopBlobStore) ObjectKeyFromURL(_ string) string         { return "" }
