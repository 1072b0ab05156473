package httpapi

import "inferd/pkg/types"

// maxBodyBytes controls the maximum allowed request body size for JSON
// endpoints. Default is 1 MiB.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// defaultModel serves requests that omit the model field.
var defaultModel string

// SetDefaultModel configures the model used when a request omits one.
func SetDefaultModel(id string) { defaultModel = id }

// systemStatsFunc, when set, enriches /status with a host snapshot.
var systemStatsFunc func() types.SystemStats

// SetSystemStatsFunc installs the host resource snapshot source.
func SetSystemStatsFunc(f func() types.SystemStats) { systemStatsFunc = f }

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
