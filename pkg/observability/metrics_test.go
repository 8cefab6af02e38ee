package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordSpot("sotawatch")
	m.RecordSpot("sotawatch")
	m.RecordSpot("pota")
	m.RecordSpotDropped()
	m.RecordRawForwarded()
	m.RecordReconnect()
	m.RecordKeepalive()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.spotsTotal.WithLabelValues("sotawatch")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.spotsTotal.WithLabelValues("pota")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.spotsDropped))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.rawForwarded))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.reconnects))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.keepalives))
}

func TestRecordDeliveryStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordDelivery(true, 50*time.Millisecond)
	m.RecordDelivery(false, 10*time.Second)
	m.RecordDelivery(true, 80*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.deliveries.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.deliveries.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.deliveryDuration))
}

func TestGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetConnected(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.connectionState))
	m.SetConnected(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.connectionState))

	m.SetBackoffSeconds(8)
	assert.Equal(t, float64(8), testutil.ToFloat64(m.backoffSeconds))
}

func TestHeartbeatStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordHeartbeat(true)
	m.RecordHeartbeat(false)
	m.RecordHeartbeat(false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.heartbeats.WithLabelValues("ok")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.heartbeats.WithLabelValues("error")))
}

func TestNilReceiverSafe(t *testing.T) {
	var m *Metrics

	m.RecordSpot("sotawatch")
	m.RecordSpotDropped()
	m.RecordRawForwarded()
	m.RecordReconnect()
	m.RecordKeepalive()
	m.RecordDelivery(true, time.Second)
	m.RecordHeartbeat(false)
	m.SetConnected(true)
	m.SetBackoffSeconds(60)
}
