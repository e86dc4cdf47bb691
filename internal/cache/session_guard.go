package cache

import (
	apperrors "classtix/pkg/app_errors"
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// SessionSeatGuard 名額快速閘門：熱門課程開放報名時預熱剩餘名額到 Redis，
// 讓爆量請求在進資料庫交易前先被擋掉。資料庫交易仍是最終權威，
// 閘門未預熱（ErrGuardNotWarmed）時直接走交易。
type SessionSeatGuard interface {
	// WarmUp 預熱課程剩餘名額
	WarmUp(ctx context.Context, sessionID int, remainingSeats int) error
	// RemainingSeats 查詢剩餘名額
	RemainingSeats(ctx context.Context, sessionID int) (int, error)
	// Reserve 原子性佔用一個名額（Lua 腳本）
	Reserve(ctx context.Context, sessionID int) error
	// Release 歸還一個名額（取消報名或資料庫拒絕時回滾）
	Release(ctx context.Context, sessionID int) error
	// Evict 移除閘門（課程關閉報名）
	Evict(ctx context.Context, sessionID int) error
}

// ErrGuardNotWarmed 該課程沒有預熱名額，呼叫端應改走資料庫交易
var ErrGuardNotWarmed = errors.New("session seat guard not warmed")

type SessionSeatGuardImpl struct {
	client *redis.Client
}

func NewSessionSeatGuard(client *redis.Client) SessionSeatGuard {
	return &SessionSeatGuardImpl{
		client: client,
	}
}

func (g *SessionSeatGuardImpl) getGuardKey(sessionID int) string {
	return fmt.Sprintf("session:%d:guard", sessionID)
}

func (g *SessionSeatGuardImpl) WarmUp(ctx context.Context, sessionID int, remainingSeats int) error {
	if remainingSeats < 0 {
		remainingSeats = 0
	}
	key := g.getGuardKey(sessionID)
	return g.client.HSet(ctx, key, map[string]interface{}{
		"seats": remainingSeats,
	}).Err()
}

func (g *SessionSeatGuardImpl) RemainingSeats(ctx context.Context, sessionID int) (int, error) {
	key := g.getGuardKey(sessionID)
	val, err := g.client.HGet(ctx, key, "seats").Int()
	if err == redis.Nil {
		return -1, ErrGuardNotWarmed
	}
	return val, err
}

func (g *SessionSeatGuardImpl) Reserve(ctx context.Context, sessionID int) error {
	key := g.getGuardKey(sessionID)

	script := `
		local guard_key = KEYS[1]

		local seats = redis.call('HGET', guard_key, 'seats')
		if not seats then
			return -2 -- 未預熱
		end

		if tonumber(seats) <= 0 then
			return -1 -- 名額已滿
		end

		redis.call('HINCRBY', guard_key, 'seats', -1)
		return 1
	`

	result, err := g.client.Eval(ctx, script, []string{key}).Result()
	if err != nil {
		return err
	}

	switch result.(int64) {
	case 1:
		return nil
	case -1:
		return apperrors.ErrSessionFull
	case -2:
		return ErrGuardNotWarmed
	default:
		return errors.New("unexpected result")
	}
}

func (g *SessionSeatGuardImpl) Release(ctx context.Context, sessionID int) error {
	key := g.getGuardKey(sessionID)

	// 只有預熱過的閘門才需要歸還，HEXISTS 防止憑空創建 key
	script := `
		local guard_key = KEYS[1]

		if redis.call('HEXISTS', guard_key, 'seats') == 0 then
			return 0
		end

		redis.call('HINCRBY', guard_key, 'seats', 1)
		return 1
	`

	_, err := g.client.Eval(ctx, script, []string{key}).Result()
	return err
}

func (g *SessionSeatGuardImpl) Evict(ctx context.Context, sessionID int) error {
	return g.client.Del(ctx, g.getGuardKey(sessionID)).Err()
}
