package main

import (
	"classtix/config"
	"classtix/internal/cache"
	"classtix/internal/database"
	"classtix/internal/handler"
	"classtix/internal/queue"
	"classtix/internal/repository"
	"classtix/internal/service"
	"classtix/internal/ticketsign"
	"classtix/internal/worker"
	"classtix/pkg/logger"
	"context"
	"log"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()

	if cfg.Ticket.InsecureDefault {
		// 不能默默用開發密鑰跑在正式環境
		logger.WithComponent("main").Warn("TICKET_SIGNING_SECRET is not set, using INSECURE development secret; tickets are forgeable, do not run this in production")
	}

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer pool.Close()

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	defer rdb.Close()

	// repositories
	sessionRepo := repository.NewSessionRepository(pool)
	enrollmentRepo := repository.NewEnrollmentRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)

	// infra
	seatGuard := cache.NewSessionSeatGuard(rdb)
	issueQueue, err := queue.NewRedisStreamIssueQueue(rdb, "", nil)
	if err != nil {
		log.Fatalf("Failed to initialize issue queue: %v", err)
	}
	signer := ticketsign.NewSigner([]byte(cfg.Ticket.SigningSecret))

	// services
	ticketService := service.NewTicketService(ticketRepo, sessionRepo, enrollmentRepo, signer)
	sessionService := service.NewSessionService(sessionRepo, enrollmentRepo, seatGuard)
	enrollmentService := service.NewEnrollmentService(pool, enrollmentRepo, sessionRepo, ticketRepo, ticketService, seatGuard, issueQueue)

	// 補發 worker：同步發票失敗的票券由這裡重試
	ticketWorker := worker.NewTicketWorker(ticketService, issueQueue)
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	if err := ticketWorker.Start(workerCtx); err != nil {
		log.Fatalf("Failed to start ticket worker: %v", err)
	}

	router := gin.Default()
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	handler.NewSessionHandler(sessionService).RegisterRoutes(router)
	handler.NewEnrollmentHandler(enrollmentService).RegisterRoutes(router)
	handler.NewTicketHandler(ticketService).RegisterRoutes(router)

	if err := router.Run(cfg.Server.Addr); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}
