package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"route-safety-go/internal/app"
	"route-safety-go/internal/client"
	"route-safety-go/internal/config"
	"route-safety-go/internal/database"
	"route-safety-go/internal/geofence"
	"route-safety-go/internal/handler"
	"route-safety-go/internal/health"
	"route-safety-go/internal/repository"
	"route-safety-go/internal/service"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// Инициализируем логгер
	logger := app.NewLogger(cfg.Logging.Level)
	logger.Info("Запуск Route Safety API Server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// gRPC health отвечает NOT_SERVING до окончания прогрева
	readiness := health.NewReadiness(logger)
	if cfg.Server.HealthPort > 0 {
		go func() {
			if err := readiness.ListenAndServe(ctx, cfg.Server.HealthPort); err != nil {
				logger.Errorf("Ошибка gRPC health сервера: %v", err)
			}
		}()
		defer readiness.Stop()
	}

	// Обучаем модель риска до приема запросов
	logger.Info("Обучение модели риска...")
	surface, err := app.TrainModel(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Ошибка обучения модели: %v", err)
	}

	// Зоны с высокой аварийностью, при ошибке пустой набор
	fence := geofence.Load(ctx, cfg.Hotspots.Source, geofence.AxisOrder(cfg.Hotspots.AxisOrder), logger)

	engine, err := app.NewNarrationEngine(ctx, cfg, fence, logger)
	if err != nil {
		logger.Fatalf("Ошибка создания движка подсказок: %v", err)
	}

	directions := client.NewDirectionsClient(cfg.Directions.BaseURL, cfg.Directions.APIKey, cfg.Directions.Timeout, logger)

	// История анализов: PostgreSQL или память процесса
	var analysisRepo repository.AnalysisRepository
	if cfg.Database.Enabled {
		logger.Info("Подключение к базе данных...")
		if err := database.Connect(cfg.DSN(), logger); err != nil {
			logger.Fatalf("Ошибка подключения к базе данных: %v", err)
		}
		defer database.Close()

		if err := database.Migrate(logger); err != nil {
			logger.Fatalf("Ошибка выполнения миграций: %v", err)
		}
		if err := database.HealthCheck(); err != nil {
			logger.Fatalf("База данных недоступна: %v", err)
		}
		analysisRepo = repository.NewAnalysisRepository(database.DB)
		logger.Info("База данных успешно подключена и готова к работе")
	} else {
		analysisRepo = repository.NewMemoryRepository()
		logger.Info("История анализов хранится в памяти")
	}

	// Инициализируем сервисы
	safetyService := service.NewSafetyService(directions, surface, fence, cfg.Hotspots.BufferMeters, analysisRepo, logger)
	streamService := service.NewStreamService(engine, directions, logger)

	// Инициализируем обработчики
	routeHandler := handler.NewRouteHandler(safetyService, streamService, surface, fence.Len(), logger)
	socketHandler := handler.NewSocketHandler(streamService, logger)

	socketServer := socketio.NewServer(nil)
	socketHandler.Register(socketServer)
	go func() {
		if err := socketServer.Serve(); err != nil {
			logger.Errorf("Ошибка socket.io сервера: %v", err)
		}
	}()
	defer socketServer.Close()

	// Настраиваем Gin router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(handler.CORSMiddleware())

	routeHandler.RegisterRoutes(router)
	router.Any("/socket.io/*any", gin.WrapH(socketServer))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Route Safety API Server",
			"version": handler.Version,
			"status":  "running",
		})
	})

	readiness.MarkReady()

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Infof("Сервер запущен на %s", srv.Addr)
		logger.Infof("API доступно по адресу: http://localhost:%d/api/v1", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Ошибка запуска сервера: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Остановка сервера...")
	readiness.MarkNotReady()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Ошибка остановки сервера: %v", err)
	}
	logger.Info("Сервер остановлен")
}
