package domain

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// wireJob is the record stored on the broker list
type wireJob struct {
	CameraID  *string  `json:"camera_id"`
	Timestamp *float64 `json:"timestamp"`
	ImageHex  *string  `json:"image_hex"`
}

// Encode serializes a job to the queue transport format
func Encode(job *Job) ([]byte, error) {
	if job == nil {
		return nil, fmt.Errorf("%w: nil job", ErrMalformedJob)
	}

	ts := float64(job.Timestamp.UnixMicro()) / 1e6
	imageHex := hex.EncodeToString(job.Image)

	data, err := json.Marshal(wireJob{
		CameraID:  &job.CameraID,
		Timestamp: &ts,
		ImageHex:  &imageHex,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode job: %w", err)
	}

	return data, nil
}

// Decode parses a queue payload back into a Job.
// Every failure wraps ErrMalformedJob.
func Decode(raw []byte) (*Job, error) {
	var w wireJob
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrMalformedJob, err)
	}

	if w.CameraID == nil || *w.CameraID == "" {
		return nil, fmt.Errorf("%w: camera_id is required", ErrMalformedJob)
	}

	if w.Timestamp == nil {
		return nil, fmt.Errorf("%w: timestamp is required", ErrMalformedJob)
	}

	if w.ImageHex == nil || *w.ImageHex == "" {
		return nil, fmt.Errorf("%w: image_hex is required", ErrMalformedJob)
	}

	image, err := hex.DecodeString(*w.ImageHex)
	if err != nil {
		return nil, fmt.Errorf("%w: image_hex: %v", ErrMalformedJob, err)
	}

	// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive
	micros := math.Round(*w.Timestamp * 1e6)
	if micros < math.MinInt64 || micros >= math.MaxInt64 {
		return nil, fmt.Errorf("%w: timestamp %v out of range", ErrMalformedJob, *w.Timestamp)
	}

	return &Job{
		CameraID:  *w.CameraID,
		Timestamp: time.UnixMicro(int64(micros)).UTC(),
		Image:     image,
	}, nil
}
