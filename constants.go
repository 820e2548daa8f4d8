package server

import "time"

const (
	// writeWait bounds a single frame write to an observer.
	writeWait = 10 * time.Second
)

// Hub metric keys.
const (
	metricSubscribers        = "hub_subscribers"
	metricFramesSent         = "hub_frames_sent_total"
	metricBytesSent          = "hub_bytes_sent_total"
	metricSubscribersDropped = "hub_subscribers_dropped_total"
)

// Subscriber departure reasons.
const (
	LeaveClosed      = "closed"
	LeaveWriteFailed = "write_failed"
	LeaveShutdown    = "shutdown"
)
