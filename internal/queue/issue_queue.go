package queue

import (
	"classtix/internal/model"
	"context"
)

type Delivery struct {
	Data *model.IssueTicketRequest
	Ack  func()
	Nack func(requeue bool)
}

// TicketIssueQueue 票券補發隊列：同步發行失敗的票券丟進來，由 worker 重試
// 報名成功是主要保證，票券發行是 best-effort，所以走非同步補發而非回滾報名
type TicketIssueQueue interface {
	// 發送補發請求到隊列
	PublishIssueRequest(ctx context.Context, req *model.IssueTicketRequest) error
	// 訂閱補發隊列
	SubscribeIssueRequests(ctx context.Context) (<-chan Delivery, error)
}

type TicketIssueQueueImpl struct {
	// 使用 Go channel 模擬 MQ 隊列（單機版）
	ch chan *model.IssueTicketRequest
}

func NewTicketIssueQueue(bufferSize int) TicketIssueQueue {
	return &TicketIssueQueueImpl{
		ch: make(chan *model.IssueTicketRequest, bufferSize),
	}
}

func (q *TicketIssueQueueImpl) PublishIssueRequest(ctx context.Context, req *model.IssueTicketRequest) error {
	q.ch <- req
	return nil
}

func (q *TicketIssueQueueImpl) SubscribeIssueRequests(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case req, ok := <-q.ch:
				if !ok {
					return
				}

				out <- Delivery{
					Data: req,
					Ack:  func() { /* 記憶體版不用做特別動作 */ },
					Nack: func(requeue bool) {
						if requeue {
							q.ch <- req // 簡單模擬重回隊列
						}
					},
				}
			}
		}
	}()

	return out, nil
}
