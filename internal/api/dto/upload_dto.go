package dto

// UploadFeedRequest is the multipart form posted by cameras
type UploadFeedRequest struct {
	CameraID string `form:"camera_id"`
}

// UploadFeedResponse acknowledges a queued frame
type UploadFeedResponse struct {
	Status   string `json:"status"`
	CameraID string `json:"cam_id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type HealthResponse struct {
	Status     string `json:"status"`
	QueueDepth *int64 `json:"queue_depth,omitempty"`
	Error      string `json:"error,omitempty"`
}
