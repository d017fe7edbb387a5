package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateOrderNumber produces the customer-facing identifier: a prefix, a
// UTC timestamp, and a random suffix for collision resistance. The uniqueness
// index on orders.order_number backstops the vanishingly small collision
// window.
func GenerateOrderNumber(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = "SR"
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102150405"), suffix)
}
