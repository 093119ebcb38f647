package domain

import "time"

// Job is one camera snapshot waiting on the queue for detection.
// A Job is never modified after it has been enqueued.
type Job struct {
	CameraID  string
	Timestamp time.Time
	Image     []byte
}

// NewJob builds a Job stamped with now. The timestamp is truncated to
// microseconds, the resolution carried by the wire format.
func NewJob(cameraID string, image []byte, now time.Time) *Job {
	return &Job{
		CameraID:  cameraID,
		Timestamp: now.UTC().Truncate(time.Microsecond),
		Image:     image,
	}
}

// DetectionResult is the person count produced for a single Job.
// It only lives between detection and notification.
type DetectionResult struct {
	CameraID    string
	PersonCount int
}
