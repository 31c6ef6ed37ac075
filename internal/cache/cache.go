// Package cache is the local durable cache: key-value persistence of the
// job record, history, shop config and session flags, surviving process
// restart. Values are JSON snapshots keyed by logical name; the in-memory
// record is always authoritative and writes are best effort.
package cache

// Logical keys. These mirror what each device persists independently;
// each is loadable and saveable on its own.
const (
	KeyActiveJob  = "active_job"
	KeyJobHistory = "job_history"
	KeyShopConfig = "shop_config"
	KeyRole       = "role"
	KeyLinked     = "linked_shop"
	KeyTheme      = "theme"
)
