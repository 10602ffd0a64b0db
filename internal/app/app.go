package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gradekeeper/sync-service/internal/config"
	"github.com/gradekeeper/sync-service/internal/delivery/httpd"
	"github.com/gradekeeper/sync-service/internal/repository"
	"github.com/gradekeeper/sync-service/internal/service"
	"github.com/gradekeeper/sync-service/internal/service/reconcile"
	"github.com/gradekeeper/sync-service/internal/worker"
	"github.com/gradekeeper/sync-service/internal/worker/queue"
	"github.com/rs/zerolog"
)

type App struct {
	server      *http.Server
	logger      zerolog.Logger
	config      *config.Config
	db          *sql.DB
	queueClient *queue.Client
	syncWorker  worker.SyncWorker
}

func New(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	// Snapshot archiving is optional: without MinIO imports still run, only
	// the raw-payload audit trail is skipped.
	var archive repository.SnapshotArchive
	if cfg.MinIO.Enabled {
		var err error
		archive, err = repository.NewMinIOArchive(
			cfg.MinIO.Endpoint,
			cfg.MinIO.AccessKey,
			cfg.MinIO.SecretKey,
			cfg.MinIO.Bucket,
			cfg.MinIO.Region,
			cfg.MinIO.UseSSL,
			log,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create MinIO archive, snapshots will not be archived")
			archive = nil
		}
	}

	teacherRepo := repository.NewTeacherRepository(db, log)
	classroomRepo := repository.NewClassroomRepository(db, log)
	assignmentRepo := repository.NewAssignmentRepository(db, log)
	submissionRepo := repository.NewSubmissionRepository(db, log)
	enrollmentRepo := repository.NewEnrollmentRepository(db, log)
	gradeRepo := repository.NewGradeRepository(db, log)
	importRunRepo := repository.NewImportRunRepository(db, log)

	gradeService := service.NewGradeService(gradeRepo, log)
	snapshotService := service.NewSnapshotService(
		reconcile.NewTransformer(log),
		reconcile.NewMergeEngine(log),
		reconcile.NewGradeExtractor(log),
		gradeService,
		teacherRepo,
		classroomRepo,
		assignmentRepo,
		submissionRepo,
		enrollmentRepo,
		importRunRepo,
		archive,
		log,
	)
	classroomService := service.NewClassroomService(
		teacherRepo,
		classroomRepo,
		assignmentRepo,
		submissionRepo,
		enrollmentRepo,
		log,
	)

	// The queue side is best-effort too: without RabbitMQ the service still
	// serves HTTP imports, it just cannot consume fetched snapshots.
	var queueClient *queue.Client
	var syncWorker worker.SyncWorker
	queueClient, err := queue.NewClient(cfg.RabbitMQ.URL, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to RabbitMQ, queue consumption disabled")
		queueClient = nil
	} else {
		if err := queueClient.SetupQueue(cfg.RabbitMQ.Exchange, cfg.RabbitMQ.ConsumeQueue, cfg.RabbitMQ.ConsumeRoutingKey); err != nil {
			log.Error().Err(err).Msg("Failed to set up RabbitMQ queue, queue consumption disabled")
			queueClient.Close()
			queueClient = nil
		}
	}
	if queueClient != nil {
		pool := worker.NewWorkerPool(cfg.Worker.MaxWorkers, log)
		consumer := queue.NewRabbitMQConsumer(queueClient.Channel(), cfg.RabbitMQ.ConsumeQueue, cfg.RabbitMQ.ConsumerTag, log)
		publisher := queue.NewRabbitMQPublisher(queueClient.Channel(), log)
		syncWorker = worker.NewSyncWorker(
			pool,
			consumer,
			publisher,
			snapshotService,
			cfg.RabbitMQ.Exchange,
			cfg.RabbitMQ.PublishRoutingKey,
			log,
		)
	}

	var workerStats func() worker.WorkerStats
	if syncWorker != nil {
		workerStats = syncWorker.GetStats
	}
	handler := httpd.NewHandler(snapshotService, classroomService, gradeService, db, workerStats, log)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:      server,
		logger:      log,
		config:      cfg,
		db:          db,
		queueClient: queueClient,
		syncWorker:  syncWorker,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	if a.syncWorker != nil {
		if err := a.syncWorker.Start(ctx); err != nil {
			a.logger.Error().Err(err).Msg("Failed to start sync worker")
		}
	}

	a.logger.Info().Msgf("Starting sync service on %s", a.config.Server.Address)
	return a.server.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down sync service...")

	if a.syncWorker != nil {
		if err := a.syncWorker.Stop(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to stop sync worker")
		}
	}

	if a.queueClient != nil {
		if err := a.queueClient.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	return a.server.Shutdown(ctx)
}
