package common

// Persisted key layout in the local key-value store. All Beacon-owned keys
// share the "beacon_" namespace so a full wipe can be scoped safely.
const (
	KeyUserData         = "beacon_user_data"
	KeyDeviceID         = "beacon_device_id"
	KeyPendingAnalytics = "beacon_pending_analytics"
	KeySessionData      = "beacon_session_data"

	// CacheKeyPrefix namespaces every cache-manager-owned entry; keys are
	// CacheKeyPrefix + collection name (e.g. "beacon_cache_devotionals").
	CacheKeyPrefix = "beacon_cache_"
)
