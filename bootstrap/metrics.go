package bootstrap

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/SunSeosahai/sabnzbd/log"
	"github.com/SunSeosahai/sabnzbd/ports"
)

type metrics struct {
	probes    *prometheus.CounterVec
	deferrals prometheus.Counter
	restarts  prometheus.Counter
}

func newMetrics(reg *prometheus.Registry, version string, ring *log.Ring, level func() int) *metrics {
	m := &metrics{
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sabnzbd_port_probes_total",
			Help: "Port probes done while negotiating the listen ports, by outcome.",
		}, []string{"status"}),
		deferrals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sabnzbd_peer_deferrals_total",
			Help: "Starts handed over to an already running instance.",
		}),
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sabnzbd_restarts_total",
			Help: "Restarts begun by this process.",
		}),
	}
	info := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "sabnzbd_build_info",
		Help:        "Release of the running process.",
		ConstLabels: prometheus.Labels{"version": version},
	})
	info.Set(1)

	reg.MustRegister(
		m.probes, m.deferrals, m.restarts, info,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "sabnzbd_warnings",
			Help: "Warnings waiting in the warnings list.",
		}, func() float64 { return float64(ring.Count()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "sabnzbd_log_level",
			Help: "Current log verbosity, 0 to 2.",
		}, func() float64 { return float64(level()) }),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) observeProbe(s ports.Status) {
	m.probes.WithLabelValues(s.String()).Inc()
}
