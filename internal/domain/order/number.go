// internal/domain/order/number.go
package order

import (
	"fmt"
	"math/rand"
	"time"
)

// NumberGenerator produces a human-readable order number for a moment
type NumberGenerator func(now time.Time) string

// NewNumberGenerator returns numbers shaped <prefix><YYYYMMDD>-<1000..9999>.
// Collisions are possible; the unique index on orders.order_number
// catches them.
func NewNumberGenerator(prefix string) NumberGenerator {
	return func(now time.Time) string {
		return fmt.Sprintf("%s%s-%d", prefix, now.Format("20060102"), 1000+rand.Intn(9000))
	}
}
