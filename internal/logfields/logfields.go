package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyJobID     = "job_id"
	KeyJobStatus = "job_status"
	KeyShopID    = "shop_id"
	KeyRole      = "role"
	KeySession   = "session_state"
	KeyRemote    = "remote"
	KeyKind      = "kind"
	KeyCacheKey  = "cache_key"
	KeyError     = "error"

	KeyMethod     = "method"
	KeyPath       = "path"
	KeyStatus     = "status"
	KeyUserAgent  = "user_agent"
	KeyRemoteAddr = "remote_addr"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func JobID(id string) slog.Attr       { return slog.String(KeyJobID, id) }
func JobStatus(s string) slog.Attr    { return slog.String(KeyJobStatus, s) }
func ShopID(id string) slog.Attr      { return slog.String(KeyShopID, id) }
func Role(r string) slog.Attr         { return slog.String(KeyRole, r) }
func SessionState(s string) slog.Attr { return slog.String(KeySession, s) }
func Remote(addr string) slog.Attr    { return slog.String(KeyRemote, addr) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func CacheKey(k string) slog.Attr     { return slog.String(KeyCacheKey, k) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func UserAgent(ua string) slog.Attr   { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
