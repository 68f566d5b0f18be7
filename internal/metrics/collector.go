// File: internal/metrics/collector.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Collector exposes realtime-cycle health as Prometheus metrics,
// gathered at scrape time from the engine's atomics rather than pushed
// from the audio thread (§5: the data loop never blocks on anything but
// the eventfd read and the callbacks themselves).

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CycleStats is read by Collect at scrape time. Implementations must be
// safe to call from a goroutine other than the data loop's.
type CycleStats interface {
	PortsInUse() (in, out int)
	MixesInUse() int
	CycleStatus() int32
	XRunCount() uint64
	LostMIDIEvents() uint64
}

// Collector is a prometheus.Collector gathering one client's cycle
// health at scrape time.
type Collector struct {
	stats CycleStats

	portsInDesc    *prometheus.Desc
	portsOutDesc   *prometheus.Desc
	mixesDesc      *prometheus.Desc
	statusDesc     *prometheus.Desc
	xrunDesc       *prometheus.Desc
	lostMIDIDesc   *prometheus.Desc
}

// NewCollector constructs a Collector over stats.
func NewCollector(stats CycleStats) *Collector {
	return &Collector{
		stats: stats,

		portsInDesc: prometheus.NewDesc(
			"graphbridge_ports_in_use", "Number of input port pool slots currently acquired", []string{"direction"}, nil,
		),
		portsOutDesc: prometheus.NewDesc(
			"graphbridge_ports_in_use", "Number of output port pool slots currently acquired", []string{"direction"}, nil,
		),
		mixesDesc: prometheus.NewDesc(
			"graphbridge_mixes_in_use", "Number of mix pool slots currently acquired", nil, nil,
		),
		statusDesc: prometheus.NewDesc(
			"graphbridge_cycle_status", "Current realtime cycle activation status (0=idle,1=awake,2=finished,3=triggered)", nil, nil,
		),
		xrunDesc: prometheus.NewDesc(
			"graphbridge_xruns_total", "Total xruns observed by the realtime cycle", nil, nil,
		),
		lostMIDIDesc: prometheus.NewDesc(
			"graphbridge_midi_events_lost_total", "Total MIDI events dropped for lack of buffer room", nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.portsInDesc
	ch <- c.portsOutDesc
	ch <- c.mixesDesc
	ch <- c.statusDesc
	ch <- c.xrunDesc
	ch <- c.lostMIDIDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.stats == nil {
		return
	}
	in, out := c.stats.PortsInUse()
	ch <- prometheus.MustNewConstMetric(c.portsInDesc, prometheus.GaugeValue, float64(in), "input")
	ch <- prometheus.MustNewConstMetric(c.portsOutDesc, prometheus.GaugeValue, float64(out), "output")
	ch <- prometheus.MustNewConstMetric(c.mixesDesc, prometheus.GaugeValue, float64(c.stats.MixesInUse()))
	ch <- prometheus.MustNewConstMetric(c.statusDesc, prometheus.GaugeValue, float64(c.stats.CycleStatus()))
	ch <- prometheus.MustNewConstMetric(c.xrunDesc, prometheus.CounterValue, float64(c.stats.XRunCount()))
	ch <- prometheus.MustNewConstMetric(c.lostMIDIDesc, prometheus.CounterValue, float64(c.stats.LostMIDIEvents()))
}
