package queue

import (
	"classtix/internal/model"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveDelivery(t *testing.T, deliveries <-chan Delivery) Delivery {
	t.Helper()
	select {
	case d, ok := <-deliveries:
		require.True(t, ok, "delivery channel closed unexpectedly")
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return Delivery{}
	}
}

func TestPublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewTicketIssueQueue(10)

	deliveries, err := q.SubscribeIssueRequests(ctx)
	require.NoError(t, err)

	req := &model.IssueTicketRequest{EnrollmentID: 1, SessionID: 2, UserID: 3}
	require.NoError(t, q.PublishIssueRequest(ctx, req))

	d := receiveDelivery(t, deliveries)
	assert.Equal(t, req, d.Data)
	d.Ack()
}

func TestPublishPreservesOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewTicketIssueQueue(10)

	deliveries, err := q.SubscribeIssueRequests(ctx)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		require.NoError(t, q.PublishIssueRequest(ctx, &model.IssueTicketRequest{EnrollmentID: i}))
	}

	for i := 1; i <= 3; i++ {
		d := receiveDelivery(t, deliveries)
		assert.Equal(t, i, d.Data.EnrollmentID)
		d.Ack()
	}
}

func TestNackRequeue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewTicketIssueQueue(10)

	deliveries, err := q.SubscribeIssueRequests(ctx)
	require.NoError(t, err)

	req := &model.IssueTicketRequest{EnrollmentID: 42}
	require.NoError(t, q.PublishIssueRequest(ctx, req))

	first := receiveDelivery(t, deliveries)
	first.Nack(true)

	// nacked request comes around again
	second := receiveDelivery(t, deliveries)
	assert.Equal(t, 42, second.Data.EnrollmentID)
	second.Ack()
}

func TestNackDrop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewTicketIssueQueue(10)

	deliveries, err := q.SubscribeIssueRequests(ctx)
	require.NoError(t, err)

	require.NoError(t, q.PublishIssueRequest(ctx, &model.IssueTicketRequest{EnrollmentID: 1}))

	d := receiveDelivery(t, deliveries)
	d.Nack(false)

	select {
	case redelivered := <-deliveries:
		t.Fatalf("dropped request was redelivered: %+v", redelivered.Data)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSubscribeStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	q := NewTicketIssueQueue(10)

	deliveries, err := q.SubscribeIssueRequests(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-deliveries:
		assert.False(t, ok, "channel should be closed after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("delivery channel not closed after context cancel")
	}
}
