package orders

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewPaymentReference returns an opaque token unique across users and products.
// The millisecond prefix keeps references roughly sortable for operators.
func NewPaymentReference(now time.Time) string {
	rnd := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PAY_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + rnd[:16]
}
