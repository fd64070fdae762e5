package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "linechat_connected_clients",
		Help: "Number of currently connected clients",
	})

	RejectedConnections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linechat_rejected_connections_total",
		Help: "Connections turned away because the server was full",
	})

	RoomsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linechat_rooms_created_total",
		Help: "Chat rooms created since startup",
	})

	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "linechat_commands_total",
		Help: "Commands dispatched by kind",
	}, []string{"command"})

	DispatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "linechat_command_dispatch_seconds",
		Help:    "Time to dispatch each command kind",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(ConnectedClients)
	prometheus.MustRegister(RejectedConnections)
	prometheus.MustRegister(RoomsCreated)
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(DispatchDuration)
}

// Handler exposes the registered metrics for scraping.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
