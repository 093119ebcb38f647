package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		job  *Job
	}{
		{
			name: "jpeg header bytes",
			job: &Job{
				CameraID:  "CAM_001",
				Timestamp: time.UnixMicro(1718000000123456).UTC(),
				Image:     []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'},
			},
		},
		{
			name: "every byte value",
			job: &Job{
				CameraID:  "lobby-east",
				Timestamp: time.UnixMicro(1).UTC(),
				Image:     allBytes(),
			},
		},
		{
			name: "unicode camera id",
			job: &Job{
				CameraID:  "カメラ-7",
				Timestamp: time.UnixMicro(1760659200000000).UTC(),
				Image:     []byte{0x00},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Encode(tt.job)
			require.NoError(t, err)

			got, err := Decode(raw)
			require.NoError(t, err)

			assert.Equal(t, tt.job.CameraID, got.CameraID)
			assert.True(t, tt.job.Timestamp.Equal(got.Timestamp), "timestamp %v != %v", tt.job.Timestamp, got.Timestamp)
			assert.Equal(t, tt.job.Image, got.Image)
		})
	}
}

func TestNewJob_RoundTripsThroughWire(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 30, 15, 987654321, time.UTC)
	job := NewJob("CAM_002", []byte("image"), now)

	assert.Equal(t, 987654000, job.Timestamp.Nanosecond())

	raw, err := Encode(job)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, job, got)
}

func TestEncode_WireKeys(t *testing.T) {
	job := &Job{
		CameraID:  "CAM_001",
		Timestamp: time.Unix(1700000000, 500000000),
		Image:     []byte{0xde, 0xad, 0xbe, 0xef},
	}

	raw, err := Encode(job)
	require.NoError(t, err)

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &record))

	assert.Len(t, record, 3)
	assert.Equal(t, "CAM_001", record["camera_id"])
	assert.Equal(t, 1700000000.5, record["timestamp"])
	assert.Equal(t, "deadbeef", record["image_hex"])
}

func TestDecode_AcceptsProducerPayload(t *testing.T) {
	raw := []byte(`{"camera_id": "CAM_009", "timestamp": 1718000000.25, "image_hex": "89504e47"}`)

	job, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, "CAM_009", job.CameraID)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, job.Image)
	assert.Equal(t, int64(1718000000), job.Timestamp.Unix())
	assert.Equal(t, 250000000, job.Timestamp.Nanosecond())
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty payload", raw: ``},
		{name: "not json", raw: `camera_id=CAM_001`},
		{name: "truncated json", raw: `{"camera_id": "CAM_001", "timestamp": 1`},
		{name: "json array", raw: `["CAM_001", 1, "00"]`},
		{name: "missing camera_id", raw: `{"timestamp": 1, "image_hex": "00"}`},
		{name: "empty camera_id", raw: `{"camera_id": "", "timestamp": 1, "image_hex": "00"}`},
		{name: "camera_id wrong type", raw: `{"camera_id": 7, "timestamp": 1, "image_hex": "00"}`},
		{name: "missing timestamp", raw: `{"camera_id": "CAM_001", "image_hex": "00"}`},
		{name: "timestamp wrong type", raw: `{"camera_id": "CAM_001", "timestamp": "now", "image_hex": "00"}`},
		{name: "missing image_hex", raw: `{"camera_id": "CAM_001", "timestamp": 1}`},
		{name: "empty image_hex", raw: `{"camera_id": "CAM_001", "timestamp": 1, "image_hex": ""}`},
		{name: "non hex characters", raw: `{"camera_id": "CAM_001", "timestamp": 1, "image_hex": "zz00"}`},
		{name: "odd length hex", raw: `{"camera_id": "CAM_001", "timestamp": 1, "image_hex": "abc"}`},
		{name: "timestamp far future", raw: `{"camera_id": "CAM_001", "timestamp": 1e300, "image_hex": "00"}`},
		{name: "timestamp far past", raw: `{"camera_id": "CAM_001", "timestamp": -1e300, "image_hex": "00"}`},
		{name: "timestamp just past microsecond range", raw: `{"camera_id": "CAM_001", "timestamp": 9.3e12, "image_hex": "00"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := Decode([]byte(tt.raw))

			require.Error(t, err)
			assert.Nil(t, job)
			assert.True(t, errors.Is(err, ErrMalformedJob), "unexpected error: %v", err)
		})
	}
}

func TestDecode_TimestampRange(t *testing.T) {
	tests := []struct {
		name      string
		timestamp string
		wantYear  int
	}{
		{name: "epoch", timestamp: "0", wantYear: 1970},
		{name: "before epoch", timestamp: "-86400.5", wantYear: 1969},
		{name: "near the upper bound", timestamp: "9.2e12", wantYear: 293506},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"camera_id": "CAM_001", "timestamp": ` + tt.timestamp + `, "image_hex": "00"}`

			job, err := Decode([]byte(raw))

			require.NoError(t, err)
			assert.Equal(t, tt.wantYear, job.Timestamp.Year())
		})
	}
}

func TestEncode_NilJob(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, ErrMalformedJob)
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("camera_id", "is required")

	assert.Equal(t, "camera_id: is required", err.Error())
	assert.ErrorIs(t, err, ErrValidation)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "camera_id", vErr.Field)
}

func allBytes() []byte {
	b := make([]byte, 256)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}
