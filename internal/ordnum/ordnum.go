// Package ordnum generates human-readable order numbers. The timestamp
// keeps numbers sortable for humans; the random suffix plus the caller's
// redraw-on-unique-violation loop makes collisions structurally impossible
// rather than merely improbable.
package ordnum

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const prefix = "ORD"

// New returns an order number of the form ORD-20060102-150405-a1b2c3.
func New(at time.Time) string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%s-%d", prefix, at.UTC().Format("20060102-150405"), at.UnixNano()%1000000)
	}
	return fmt.Sprintf("%s-%s-%s", prefix, at.UTC().Format("20060102-150405"), hex.EncodeToString(buf))
}

// IsSynthetic reports whether an order number belongs to the legacy scheme
// that recorded a checkout as an extra "SALE-*" order. Reports must exclude
// such orders to avoid double counting against the sales table.
func IsSynthetic(orderNumber string) bool {
	return strings.HasPrefix(orderNumber, "SALE-")
}
