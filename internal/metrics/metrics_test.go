package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordVersionCountsByStatus(t *testing.T) {
	ok := versionsTotal.WithLabelValues("image", "success")
	failed := versionsTotal.WithLabelValues("image", "error")
	beforeOK, beforeFailed := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	RecordVersion("image", "process", 10*time.Millisecond, true)
	RecordVersion("image", "clone", time.Millisecond, false)

	assert.Equal(t, beforeOK+1, testutil.ToFloat64(ok))
	assert.Equal(t, beforeFailed+1, testutil.ToFloat64(failed))
}

func TestRecordMirrorUploadOnlyCountsBytesOnSuccess(t *testing.T) {
	before := testutil.ToFloat64(mirrorBytesUploaded)
	RecordMirrorUpload(100, false)
	RecordMirrorUpload(40, true)
	assert.Equal(t, before+40, testutil.ToFloat64(mirrorBytesUploaded))
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordDirectoryCreated()
	RecordClone("copy", true)
	SetQueueDepth(3)
	RecordQueueDrop()
	RecordStorageOperation("s3", "put_object", time.Millisecond, true)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "mediagen_directories_created_total")
	assert.Contains(t, body, `mediagen_clones_total{status="success",strategy="copy"}`)
	assert.Contains(t, body, "mediagen_queue_depth 3")
	assert.Contains(t, body, `mediagen_storage_operation_duration_seconds_count{backend="s3",operation="put_object",status="success"}`)
}
