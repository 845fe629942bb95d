package ipc

import "time"

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// LastFile describes the most recently processed file.
type LastFile struct {
	Path        string    `json:"path"`
	Artifact    string    `json:"artifact"`
	Category    string    `json:"category"`
	Accepted    bool      `json:"accepted"`
	ProcessedAt time.Time `json:"processed_at"`
}

// StatusResponse represents combined daemon and dispatcher status.
type StatusResponse struct {
	Running         bool      `json:"running"`
	RunID           string    `json:"run_id"`
	TotalProcessed  int       `json:"total_processed"`
	Streak          int       `json:"streak"`
	QueueDepth      int       `json:"queue_depth"`
	Dropped         int       `json:"dropped"`
	PendingDebounce int       `json:"pending_debounce"`
	SinkBacklog     int       `json:"sink_backlog"`
	SinkDropped     int       `json:"sink_dropped"`
	ReferenceShots  int       `json:"reference_shots"`
	Watching        bool      `json:"watching"`
	WatchDir        string    `json:"watch_dir"`
	Extensions      []string  `json:"extensions"`
	LastFile        *LastFile `json:"last_file,omitempty"`
	LastError       string    `json:"last_error"`
	LockPath        string    `json:"lock_path"`
	ResultsPath     string    `json:"results_path"`
	LogPath         string    `json:"log_path"`
	PID             int       `json:"pid"`
}

// AddFileRequest queues a file by path.
type AddFileRequest struct {
	Path string `json:"path"`
}

// AddFileResponse describes the queued file.
type AddFileResponse struct {
	Path     string `json:"path"`
	Category string `json:"category"`
}
