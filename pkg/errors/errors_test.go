package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeForStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{401, ErrorTypeAuth},
		{403, ErrorTypeAuth},
		{404, ErrorTypeNotFound},
		{429, ErrorTypeRateLimit},
		{500, ErrorTypeServerError},
		{503, ErrorTypeServerError},
		{418, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, TypeForStatus(tt.code))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeNetwork))
	assert.True(t, IsRetryable(ErrorTypeRateLimit))
	assert.True(t, IsRetryable(ErrorTypeServerError))
	assert.False(t, IsRetryable(ErrorTypeAuth))
	assert.False(t, IsRetryable(ErrorTypeParsing))
	assert.False(t, IsRetryable(ErrorTypeUnknown))
}

func TestIsAuth(t *testing.T) {
	wrapped := fmt.Errorf("identity: %w", &Error{Type: ErrorTypeAuth, Code: 401})
	assert.True(t, IsAuth(wrapped))
	assert.False(t, IsAuth(&Error{Type: ErrorTypeNetwork}))
	assert.False(t, IsAuth(stderrors.New("plain")))
}

func TestScanErrorMessages(t *testing.T) {
	assert.Equal(t, "Scan failed: blurry", Rejected("blurry").Error())
	assert.Equal(t, "Scan failed: Unknown", Rejected("").Error())
	assert.Equal(t, "Scan timeout", New(KindScanTimeout, "").Error())
	assert.Equal(t, "No images found: soda can product", New(KindNoImagesFound, "No images found: soda can product").Error())

	err := Wrap(KindUploadFailed, "upload failed", stderrors.New("boom"))
	assert.Equal(t, "upload failed: boom", err.Error())
}

func TestWrapKeepsCancellation(t *testing.T) {
	err := Wrap(KindDownloadFailed, "download", context.Canceled)
	assert.True(t, stderrors.Is(err, context.Canceled))
	assert.Equal(t, Kind(""), KindOf(err))
	assert.True(t, IsCanceled(err))

	assert.Nil(t, Wrap(KindDownloadFailed, "download", nil))
}

func TestKindOf(t *testing.T) {
	cause := &Error{Type: ErrorTypeNetwork, Message: "dial"}
	err := fmt.Errorf("turn: %w", Wrap(KindSourceUnavailable, "Pexels API Error", cause))

	assert.Equal(t, KindSourceUnavailable, KindOf(err))
	assert.True(t, Is(err, KindSourceUnavailable))
	assert.False(t, Is(err, KindScanTimeout))

	var apiErr *Error
	assert.True(t, stderrors.As(err, &apiErr))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 20))
	assert.Equal(t, "Scan failed: blurry ", Truncate("Scan failed: blurry image", 20))
	assert.Equal(t, "ñañ", Truncate("ñañaña", 3))
	assert.Equal(t, "", Truncate("abc", 0))
}
