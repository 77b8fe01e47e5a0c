// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package api

// JobStep is one builder call in a job request
type JobStep struct {
	Op    string `json:"op" binding:"required"`
	Value string `json:"value"`
	Track string `json:"track,omitempty"`
}

// JobConfigRequest for Add/Update
type JobConfigRequest struct {
	ID        string    `json:"id"`
	Reference string    `json:"reference"`
	Input     []string  `json:"input" binding:"required"`
	Output    []string  `json:"output" binding:"required"`
	Steps     []JobStep `json:"steps"`
	RawArgs   string    `json:"raw_args"`
	Autostart bool      `json:"autostart"`
}

// Job represents a conversion job in API responses
type Job struct {
	ID        string     `json:"id"`
	Reference string     `json:"reference"`
	CreatedAt int64      `json:"created_at"`
	UpdatedAt int64      `json:"updated_at"`
	Config    *JobConfig `json:"config,omitempty"`
	State     *JobState  `json:"state,omitempty"`
	Report    *JobReport `json:"report,omitempty"`
}

// JobConfig in API format
type JobConfig struct {
	ID        string    `json:"id"`
	Reference string    `json:"reference"`
	Input     []string  `json:"input"`
	Output    []string  `json:"output"`
	Steps     []JobStep `json:"steps"`
	RawArgs   string    `json:"raw_args"`
	Autostart bool      `json:"autostart"`
	Command   string    `json:"command"`
}

// JobState for API
type JobState struct {
	Order    string    `json:"order"`
	State    string    `json:"exec"`
	Runtime  int64     `json:"runtime_seconds"`
	ExitCode int       `json:"exit_code"`
	LastLog  string    `json:"last_logline"`
	Progress *Progress `json:"progress"`
	Memory   uint64    `json:"memory_bytes"`
	CPU      float64   `json:"cpu_usage"`
	// PeakMemory and PeakCPU are the highest values sampled during the run.
	PeakMemory uint64  `json:"memory_peak_bytes"`
	PeakCPU    float64 `json:"cpu_peak_usage"`
}

// Progress of a running or finished job
type Progress struct {
	Duration string  `json:"duration"`
	Current  string  `json:"current"`
	Percent  int     `json:"progress"`
	Frame    uint64  `json:"frame"`
	Size     uint64  `json:"size_bytes"`
	Speed    float64 `json:"speed"`
	Error    string  `json:"error,omitempty"`
}

// JobReport for logs
type JobReport struct {
	Log [][2]string `json:"log"`
}

// CommandRequest for start/stop/restart
type CommandRequest struct {
	Command string `json:"command" binding:"required"`
}

// ProbeRequest for POST /probe
type ProbeRequest struct {
	Input string `json:"input" binding:"required"`
	// Format is json (default), xml or csv.
	Format string `json:"format"`
}

// ThumbnailsRequest for POST /thumbnails
type ThumbnailsRequest struct {
	Input        string `json:"input" binding:"required"`
	OutputPrefix string `json:"output_prefix" binding:"required"`
	// Count defaults to 5 when omitted.
	Count  *int   `json:"count"`
	Format string `json:"format"`
}

// ThumbnailsResponse names the pattern of the written files
type ThumbnailsResponse struct {
	Pattern string `json:"pattern"`
	Count   int    `json:"count"`
}

// VersionResponse for GET /version
type VersionResponse struct {
	Version  string `json:"version"`
	Major    int    `json:"major"`
	Minor    int    `json:"minor"`
	Revision int    `json:"rev"`
}

// CapabilityResponse for GET /encoders/:name and /decoders/:name
type CapabilityResponse struct {
	Name      string `json:"name"`
	Supported bool   `json:"supported"`
}

// ErrorResponse for API errors
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
