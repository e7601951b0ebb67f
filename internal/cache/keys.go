package cache

import (
	"fmt"
	"time"
)

const (
	ProfileKeyPrefix   = "profile:%d"
	WSTicketKeyPrefix  = "ws_ticket:%s"
	BlacklistKeyPrefix = "blacklist:%s"
	ReconcileLockKey   = "lock:reconcile"
)

const (
	ProfileTTL  = 5 * time.Minute
	WSTicketTTL = 30 * time.Second
)

func ProfileKey(userID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func WSTicketKey(ticket string) string {
	return fmt.Sprintf(WSTicketKeyPrefix, ticket)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}
