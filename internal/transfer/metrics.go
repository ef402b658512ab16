package transfer

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics registered for the Transfer Supervisor and the engines it
// hands the socket to. Registered at package init the way a
// self-contained collector would be, rather than left for a caller to
// wire up by hand.
var (
	transfersStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "otelnet_transfers_started_total",
		Help: "Transfers entered by the Transfer Supervisor, by protocol and trigger.",
	}, []string{"protocol", "trigger"})

	transfersFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "otelnet_transfers_finished_total",
		Help: "Transfers that reached Supervisor exit, by protocol.",
	}, []string{"protocol"})

	transferBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "otelnet_transfer_bytes_total",
		Help: "Bytes moved by an active transfer engine or relay, by protocol.",
	}, []string{"protocol"})

	activeTransfers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "otelnet_transfers_active",
		Help: "Transfers currently holding the socket (0 or 1, this client drives one socket at a time).",
	})
)

func init() {
	prometheus.MustRegister(transfersStarted, transfersFinished, transferBytes, activeTransfers)
}

func triggerLabel(auto bool) string {
	if auto {
		return "auto"
	}
	return "manual"
}

// MetricsHandler exposes the registered counters and gauge the same
// way runZeroInc-sockstats' exporter commands do: a bare
// promhttp.Handler, left for the caller to mount on its own
// http.ServeMux and net.Listener.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
