package models

import "time"

type CPUStats struct {
	Usage int    `json:"usage"`
	Cores int    `json:"cores"`
	Model string `json:"model"`
}

// MemoryStats sizes are GB rounded to one decimal.
type MemoryStats struct {
	Total        float64 `json:"total"`
	Used         float64 `json:"used"`
	Free         float64 `json:"free"`
	UsagePercent int     `json:"usagePercent"`
}

// DiskStats sizes are whole GB.
type DiskStats struct {
	Total        int    `json:"total"`
	Used         int    `json:"used"`
	Free         int    `json:"free"`
	UsagePercent int    `json:"usagePercent"`
	Mount        string `json:"mount"`
}

type Uptime struct {
	Seconds   float64 `json:"seconds"`
	Formatted string  `json:"formatted"`
	Days      int     `json:"days"`
	Hours     int     `json:"hours"`
	Minutes   int     `json:"minutes"`
}

type SystemHealth struct {
	CPU           CPUStats    `json:"cpu"`
	Memory        MemoryStats `json:"memory"`
	Disk          DiskStats   `json:"disk"`
	Uptime        Uptime      `json:"uptime"`
	ProcessUptime Uptime      `json:"processUptime"`
	Platform      string      `json:"platform"`
	Hostname      string      `json:"hostname"`
	Timestamp     time.Time   `json:"timestamp"`
}

// QuickStats is the cheap subset polled frequently by dashboards.
type QuickStats struct {
	CPU           int   `json:"cpu"`
	MemoryPercent int   `json:"memoryPercent"`
	Timestamp     int64 `json:"timestamp"` // unix milliseconds
}
