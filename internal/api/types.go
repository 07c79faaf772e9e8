package api

import (
	"clipfit/internal/media"
	"clipfit/internal/worker"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Run describes a recorded compression run in a transport-friendly format.
type Run struct {
	ID              string               `json:"id"`
	Filename        string               `json:"filename"`
	Status          string               `json:"status"`
	InputSize       int64                `json:"inputSize"`
	TargetSize      int64                `json:"targetSize"`
	OutputSize      int64                `json:"outputSize,omitempty"`
	OutputPath      string               `json:"outputPath,omitempty"`
	Attempts        int                  `json:"attempts"`
	FinalBitrate    int64                `json:"finalBitrate,omitempty"`
	ReductionPct    float64              `json:"reductionPercent,omitempty"`
	ErrorKind       string               `json:"errorKind,omitempty"`
	ErrorMessage    string               `json:"errorMessage,omitempty"`
	Suggestion      string               `json:"suggestion,omitempty"`
	StartedAt       string               `json:"startedAt,omitempty"`
	FinishedAt      string               `json:"finishedAt,omitempty"`
	DurationSeconds float64              `json:"durationSeconds,omitempty"`
	Metadata        *media.VideoMetadata `json:"metadata,omitempty"`
}

// Attempt captures one encode attempt of a run.
type Attempt struct {
	Attempt        int     `json:"attempt"`
	VideoBitrate   int64   `json:"videoBitrate"`
	AudioBitrate   int64   `json:"audioBitrate"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	FPS            float64 `json:"fps"`
	OutputSize     int64   `json:"outputSize"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
	Profile        string  `json:"profile,omitempty"`
	Decision       string  `json:"decision"`
}

// WorkerStatus summarizes the worker host.
type WorkerStatus struct {
	RunID      string  `json:"runId,omitempty"`
	Filename   string  `json:"filename,omitempty"`
	Active     bool    `json:"active"`
	Stage      string  `json:"stage"`
	StageLabel string  `json:"stageLabel"`
	Percent    float64 `json:"percent"`
	Attempt    int     `json:"attempt,omitempty"`
	Message    string  `json:"message,omitempty"`
	StartedAt  string  `json:"startedAt,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	HistoryDBPath string             `json:"historyDbPath,omitempty"`
	LockFilePath  string             `json:"lockFilePath"`
	StagingBytes  int64              `json:"stagingBytes"`
	RunStats      map[string]int     `json:"runStats"`
	Worker        WorkerStatus       `json:"worker"`
	Dependencies  []DependencyStatus `json:"dependencies"`
}

// RunListResponse wraps a collection of runs for API responses.
type RunListResponse struct {
	Runs []Run `json:"runs"`
}

// RunResponse wraps a single run and its attempts.
type RunResponse struct {
	Run      Run       `json:"run"`
	Attempts []Attempt `json:"attempts"`
}

// EventsResponse carries a slice of a run's event log.
type EventsResponse struct {
	Events []worker.Envelope `json:"events"`
	Next   int64             `json:"next"`
	Done   bool              `json:"done"`
	Missed int64             `json:"missed,omitempty"`
}
