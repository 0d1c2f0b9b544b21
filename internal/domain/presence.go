package domain

import (
	"time"
)

// PresenceStatus is a user's connection state.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "ONLINE"
	PresenceOffline PresenceStatus = "OFFLINE"
)

// DeviceInfo carries connection metadata recorded on connect.
type DeviceInfo struct {
	DeviceType string `json:"deviceType,omitempty"`
	IPAddress  string `json:"ipAddress,omitempty"`
	UserAgent  string `json:"userAgent,omitempty"`
}

// PresenceRecord is the durable per-user presence row, upserted on
// every connect, disconnect and heartbeat.
type PresenceRecord struct {
	UserID         int64          `json:"userId"`
	Status         PresenceStatus `json:"status"`
	LastActiveTime time.Time      `json:"lastActiveTime"`
	DeviceType     string         `json:"deviceType,omitempty"`
	IPAddress      string         `json:"ipAddress,omitempty"`
	UserAgent      string         `json:"userAgent,omitempty"`
}
