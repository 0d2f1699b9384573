package network

import "time"

// Data is the current view of the primary network connection.
type Data struct {
	ConnectionType string  `json:"connectionType"`
	Interface      string  `json:"interface"`
	DownloadSpeed  float64 `json:"downloadSpeed"`
	UploadSpeed    float64 `json:"uploadSpeed"`
	Ping           float64 `json:"ping"`
	Jitter         float64 `json:"jitter"`
	PacketLoss     float64 `json:"packetLoss"`
	Stability      float64 `json:"stability"`
	IPAddress      string  `json:"ipAddress"`
	MACAddress     string  `json:"macAddress"`
	Hostname       string  `json:"hostname"`
}

type IOData struct {
	UploadSpeed      float64  `json:"uploadSpeed"`
	DownloadSpeed    float64  `json:"downloadSpeed"`
	UploadPackets    uint64   `json:"uploadPackets"`
	DownloadPackets  uint64   `json:"downloadPackets"`
	ActiveInterfaces []string `json:"activeInterfaces"`
	BytesSent        uint64   `json:"bytesSent"`
	BytesReceived    uint64   `json:"bytesReceived"`
}

type Device struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	IPAddress  string `json:"ipAddress"`
	MACAddress string `json:"macAddress"`
}

// BandwidthPoint is one history sample. Speed test points carry the
// measured throughput instead of the interface rate.
type BandwidthPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Download    float64   `json:"download"`
	Upload      float64   `json:"upload"`
	IsSpeedTest bool      `json:"isSpeedTest"`
}

type Quality struct {
	Ping       float64 `json:"ping"`
	Jitter     float64 `json:"jitter"`
	PacketLoss float64 `json:"packetLoss"`
	Stability  float64 `json:"stability"`
}

// Snapshot is the aggregate served at /all.
type Snapshot struct {
	NetworkData      *Data            `json:"networkData"`
	ConnectedDevices []Device         `json:"connectedDevices"`
	BandwidthHistory []BandwidthPoint `json:"bandwidthHistory"`
	IOData           *IOData          `json:"ioData"`
	LastUpdated      *time.Time       `json:"lastUpdated"`
}
