package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := New(reg)
	require.NoError(t, err)

	r.Node("onnx", "Conv", ResultOK)
	r.Node("onnx", "Conv", ResultOK)
	r.Node("onnx", "Foo", ResultError)
	r.Graph("onnx", ResultOK, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.NodesTotal.WithLabelValues("onnx", "Conv", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.NodesTotal.WithLabelValues("onnx", "Foo", ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.GraphsTotal.WithLabelValues("onnx", ResultOK)))
	assert.Equal(t, 1, testutil.CollectAndCount(r.ImportSeconds))

	_, err = New(reg)
	assert.Error(t, err, "collectors are already registered")
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Node("onnx", "Conv", ResultOK)
		r.Graph("onnx", ResultError, time.Second)
	})
}
