package worker

import (
	"classtix/internal/queue"
	"classtix/internal/service"
	"classtix/pkg/logger"
	"context"

	"go.uber.org/zap"
)

type TicketWorker interface {
	// 訂閱補發隊列
	Start(ctx context.Context) error
}

type TicketWorkerImpl struct {
	service service.TicketService
	queue   queue.TicketIssueQueue
}

func NewTicketWorker(service service.TicketService, queue queue.TicketIssueQueue) TicketWorker {
	return &TicketWorkerImpl{
		service: service,
		queue:   queue,
	}
}

func (w *TicketWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.SubscribeIssueRequests(ctx)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			ticket, err := w.service.IssueForRequest(ctx, msg.Data)

			if err != nil {
				// 暫時性失敗（資料庫連不上等），留在隊列裡延遲重試
				logger.WithComponent("worker").Warn("ticket issue retry failed",
					zap.Int("enrollment_id", msg.Data.EnrollmentID),
					zap.Error(err),
				)
				msg.Nack(true)
				continue
			}

			if ticket != nil {
				logger.WithComponent("worker").Info("ticket issued from retry queue",
					zap.Int("enrollment_id", msg.Data.EnrollmentID),
					zap.String("ticket_number", ticket.TicketNumber),
				)
			}
			msg.Ack()
		}
	}()
	return nil
}
