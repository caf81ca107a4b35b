package types

import "time"

// WorkerState is one node of the Worker's connection state machine.
type WorkerState string

const (
	WorkerInitializing WorkerState = "initializing"
	WorkerConnecting   WorkerState = "connecting"
	WorkerConnected    WorkerState = "connected"
	WorkerBackoff      WorkerState = "backoff"
	WorkerFailed       WorkerState = "failed"
	WorkerDraining     WorkerState = "draining"
	WorkerTerminated   WorkerState = "terminated"
)

// WorkerStatus is the read-only view the supervisor and stats poller
// expose for one worker.
type WorkerStatus struct {
	WorkerID        string      `json:"worker_id"`
	State           WorkerState `json:"state"`
	IsConnected     bool        `json:"is_connected"`
	EventsProcessed uint64      `json:"events_processed"`
	DroppedFrames   uint64      `json:"dropped_frames"`
	ReconnectCount  int         `json:"reconnect_count"`
	LastActivity    time.Time   `json:"last_activity_ts"`
	AssignedTokens  []string    `json:"assigned_tokens"`
	LastError       string      `json:"last_error,omitempty"`
}

// StreamingStats is the aggregate view across the whole worker fleet.
type StreamingStats struct {
	ActiveConnections  int       `json:"active_connections"`
	TotalWorkers       int       `json:"total_workers"`
	TotalEventsReceived uint64   `json:"total_events_received"`
	EventsPerSecond    float64   `json:"events_per_second"`
	UptimeSeconds      float64  `json:"uptime_seconds"`
	LaggedReceivers    uint64    `json:"lagged_receivers"`
	LastUpdated        time.Time `json:"last_updated"`
}

// ActivityCounters is the per-token running tally the Activity Tracker
// maintains from the same event stream the order book consumes.
type ActivityCounters struct {
	TokenID           string    `json:"token_id"`
	EventCount        uint64    `json:"event_count"`
	LastBid           string    `json:"last_bid,omitempty"`
	LastAsk           string    `json:"last_ask,omitempty"`
	LastUpdate        time.Time `json:"last_update"`
	TotalVolume       float64   `json:"total_volume"`
	TradeCount        uint64    `json:"trade_count"`
	LastTradePrice    string    `json:"last_trade_price,omitempty"`
	LastTradeAt       time.Time `json:"last_trade_timestamp"`
}
