package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ValentinKolb/mlsrelay/lib/store"
	"github.com/ValentinKolb/mlsrelay/rpc/common"
	"github.com/ValentinKolb/mlsrelay/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var metricsLogger = logger.GetLogger("metrics")

// serverMetrics collects the request metrics of one server in its own metrics set
//
// Exposed metrics:
//
//	mlsrelay_requests_total{type}                  handled requests per message type
//	mlsrelay_request_duration_seconds{type}        handling time per message type
//	mlsrelay_errors_total{type,code}               Error responses per message type and code
//	mlsrelay_decode_errors_total                   requests that could not be deserialized
//	mlsrelay_frames_rejected_total                 frames refused by the transport
//	mlsrelay_connections_active                    connections currently served
//	mlsrelay_connections{state}                    served connections per state
//	mlsrelay_bundles, mlsrelay_groups, mlsrelay_log_entries   store contents
type serverMetrics struct {
	set *metrics.Set
}

func newServerMetrics(s store.IStore, t transport.IRPCServerTransport) *serverMetrics {
	set := metrics.NewSet()

	set.NewGauge("mlsrelay_connections_active", func() float64 {
		return float64(t.ActiveConnections())
	})
	for _, state := range []string{"reading", "dispatching", "writing"} {
		set.NewGauge(fmt.Sprintf(`mlsrelay_connections{state=%q}`, state), func() float64 {
			return float64(t.ConnectionStates()[state])
		})
	}

	stat := func(pick func(store.Stats) int) func() float64 {
		return func() float64 {
			stats, err := s.Stats()
			if err != nil {
				metricsLogger.Warningf("failed to read store stats: %v", err)
				return 0
			}
			return float64(pick(stats))
		}
	}
	set.NewGauge("mlsrelay_bundles", stat(func(st store.Stats) int { return st.Bundles }))
	set.NewGauge("mlsrelay_groups", stat(func(st store.Stats) int { return st.Groups }))
	set.NewGauge("mlsrelay_log_entries", stat(func(st store.Stats) int { return st.LogEntries }))

	return &serverMetrics{set: set}
}

// observe records one handled request
func (m *serverMetrics) observe(reqType common.MessageType, resp *common.Message, start time.Time) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`mlsrelay_requests_total{type=%q}`, reqType)).Inc()
	m.set.GetOrCreateHistogram(fmt.Sprintf(`mlsrelay_request_duration_seconds{type=%q}`, reqType)).UpdateDuration(start)
	if resp.MsgType == common.MsgTError {
		m.set.GetOrCreateCounter(fmt.Sprintf(`mlsrelay_errors_total{type=%q,code=%q}`, reqType, resp.Code)).Inc()
	}
}

func (m *serverMetrics) decodeError() {
	m.set.GetOrCreateCounter("mlsrelay_decode_errors_total").Inc()
}

func (m *serverMetrics) frameRejected() {
	m.set.GetOrCreateCounter("mlsrelay_frames_rejected_total").Inc()
}

// handler serves the metrics in the prometheus text format
func (m *serverMetrics) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m.set.WritePrometheus(w)
	})
}
