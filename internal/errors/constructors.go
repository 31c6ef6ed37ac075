package errors

// Convenience constructors for common error patterns

// Config and input errors

func ConfigNotFound(path string) *PickitError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *PickitError {
	return New(CategoryValidation, SeverityError, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

func ShopPaused(shopID string) *PickitError {
	return New(CategoryValidation, SeverityError, "shop is not accepting new jobs").
		WithContext("shop_id", shopID)
}

func JobConflict(activeID string) *PickitError {
	return New(CategoryValidation, SeverityError, "another job is already active").
		WithContext("active_job_id", activeID)
}

func InvalidTransition(from, to string) *PickitError {
	return New(CategoryValidation, SeverityError, "status transition not allowed").
		WithContext("from", from).
		WithContext("to", to)
}

// Peer link errors

func TransportOpenFailed(key string, cause error) *PickitError {
	return Wrap(cause, CategoryTransport, SeverityWarning, "failed to open peer transport").
		WithContext("rendezvous_key", key)
}

func SendFailed(cause error) *PickitError {
	return Wrap(cause, CategoryTransport, SeverityWarning, "failed to send to peer")
}

func NoPeer() *PickitError {
	return New(CategorySession, SeverityWarning, "no connected peer")
}

// Durable cache errors

func CacheOpenFailed(path string, cause error) *PickitError {
	return Wrap(cause, CategoryPersistence, SeverityFatal, "failed to open durable cache").
		WithContext("path", path)
}

func CacheSaveFailed(key string, cause error) *PickitError {
	return Wrap(cause, CategoryPersistence, SeverityWarning, "failed to persist value").
		WithContext("key", key)
}
