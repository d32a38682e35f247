package metrics

const (
	DefaultPrometheusPath = "/metrics"

	MeterName = "devtoolbox/cryptotool"

	CryptoToolPrefix = "cryptotool_"

	// Conversion metrics
	ConvertLatency  = CryptoToolPrefix + "convert_latency"
	ConvertRequests = CryptoToolPrefix + "convert_requests"
	ConvertErrors   = CryptoToolPrefix + "convert_errors"
	ConvertSuccess  = CryptoToolPrefix + "convert_success"

	// Key generation metrics
	KeygenLatency  = CryptoToolPrefix + "keygen_latency"
	KeygenRequests = CryptoToolPrefix + "keygen_requests"
	KeygenErrors   = CryptoToolPrefix + "keygen_errors"

	// Result cache metrics
	CacheHits      = CryptoToolPrefix + "cache_hits"
	CacheMisses    = CryptoToolPrefix + "cache_misses"
	CacheEvictions = CryptoToolPrefix + "cache_evictions"

	// Controller metrics
	ControllerRuns      = CryptoToolPrefix + "controller_runs"
	ControllerDiscarded = CryptoToolPrefix + "controller_discarded"

	AttrOperation = "operation"
	AttrAlgorithm = "algorithm"
	AttrErrorKind = "error_kind"
)
