package ticketsign

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// NewTicketNumber 產生人類可讀的票號 TKT-YYYY-NNNNNN
// 隨機數可能碰撞，唯一性由資料庫 unique constraint 把關，呼叫端需重試
func NewTicketNumber(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TKT-%d-%06d", now.Year(), n.Int64()), nil
}
