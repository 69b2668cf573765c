package metrics

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/process"
)

// Metrics holds the counters updated while jobs run
type Metrics struct {
	registry        *prometheus.Registry
	ImagesProcessed prometheus.Counter
	ImagesSkipped   prometheus.Counter
	CropsWritten    prometheus.Counter
	CropsEmpty      prometheus.Counter
	Jobs            *prometheus.CounterVec
}

// New registers the counters on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ImagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detectcrop_images_processed_total",
			Help: "Source images run through the detector",
		}),
		ImagesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detectcrop_images_skipped_total",
			Help: "Source images that could not be read",
		}),
		CropsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detectcrop_crops_written_total",
			Help: "Crops written to disk",
		}),
		CropsEmpty: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detectcrop_crops_empty_total",
			Help: "Detections whose clipped rectangle had no area",
		}),
		Jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "detectcrop_jobs_total",
			Help: "Finished jobs by final state",
		}, []string{"state"}),
	}
	m.registry.MustRegister(m.ImagesProcessed, m.ImagesSkipped, m.CropsWritten, m.CropsEmpty, m.Jobs)
	m.registerProcessGauges()
	return m
}

// registerProcessGauges exports memory and CPU of this process, sampled on scrape
func (m *Metrics) registerProcessGauges() {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "detectcrop_memory_usage_megabytes",
			Help: "Resident memory of the process in megabytes",
		}, func() float64 {
			mem, err := proc.MemoryInfo()
			if err != nil {
				return 0
			}
			return float64(mem.RSS) / 1024 / 1024
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "detectcrop_cpu_usage_percent",
			Help: "CPU usage of the process in percent",
		}, func() float64 {
			pct, err := proc.CPUPercent()
			if err != nil {
				return 0
			}
			return pct
		}),
	)
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// JobFinished counts a job that reached state
func (m *Metrics) JobFinished(state string) {
	m.Jobs.WithLabelValues(state).Inc()
}
