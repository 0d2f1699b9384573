package speedtest

import "time"

// ServerInfo describes the server a run was measured against.
type ServerInfo struct {
	Name     string  `json:"name,omitempty"`
	Location string  `json:"location,omitempty"`
	Sponsor  string  `json:"sponsor,omitempty"`
	Latency  float64 `json:"latency,omitempty"`
	Distance string  `json:"distance,omitempty"`
}

// Result is a completed measurement. Speeds are in Mbps, ping in ms.
type Result struct {
	Download float64     `json:"download"`
	Upload   float64     `json:"upload"`
	Ping     float64     `json:"ping"`
	Server   *ServerInfo `json:"server,omitempty"`
}

// Payload is the body of GET /speedtest?wait=true and GET /speedtest/result.
// A non-empty Error marks a failed run; the numeric fields are then zero.
type Payload struct {
	Result
	Error string `json:"error,omitempty"`
}

func (p Payload) Failed() bool {
	return p.Error != ""
}

type Status struct {
	ID        string     `json:"id,omitempty"`
	Running   bool       `json:"running"`
	Progress  float64    `json:"progress"`
	Phase     string     `json:"phase"`
	StartTime *time.Time `json:"start_time,omitempty"`
}

// StartResponse is returned by GET /speedtest when the run happens in the background.
type StartResponse struct {
	Message string `json:"message"`
	Status  Status `json:"status"`
}

const (
	MessageStarted    = "Speed test started"
	MessageInProgress = "Speed test already in progress"
	MessageNoResult   = "No speed test has been run yet"
	MessageTimedOut   = "Speed test timed out"
)

const (
	PhaseStarting  = "Starting speed test..."
	PhaseServer    = "Finding best server..."
	PhaseDownload  = "Testing download speed..."
	PhaseUpload    = "Testing upload speed..."
	PhaseUpdating  = "Updating network data..."
	PhaseCompleted = "Test completed"
)
