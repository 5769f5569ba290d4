package logging

// Component constants for structured logging
const (
	ComponentStartup   = "startup"
	ComponentBackend   = "backend"
	ComponentLifecycle = "lifecycle"
	ComponentBulk      = "bulk"
	ComponentPoller    = "poller"
	ComponentDashboard = "dashboard"
	ComponentVideo     = "video"
	ComponentDisplay   = "display-server"
	ComponentDatabase  = "database"
	ComponentSSE       = "sse"
	ComponentHandlers  = "handlers"
	ComponentEmotion   = "emotion"
)
