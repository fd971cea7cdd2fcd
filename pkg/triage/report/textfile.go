package report

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cognicore/triage/pkg/triage/eval"
	"github.com/cognicore/triage/pkg/triage/store"
)

// Collectors holds the gauges describing the latest training run.
type Collectors struct {
	Precision *prometheus.GaugeVec
	Recall    *prometheus.GaugeVec
	F1        *prometheus.GaugeVec
	Support   *prometheus.GaugeVec
	Accuracy  prometheus.Gauge
	Duration  prometheus.Gauge
	LastRun   prometheus.Gauge
}

// NewCollectors creates the gauges and registers them on reg.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Precision: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "triage_class_precision",
				Help: "Held-out precision per ticket category",
			},
			[]string{"category"},
		),
		Recall: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "triage_class_recall",
				Help: "Held-out recall per ticket category",
			},
			[]string{"category"},
		),
		F1: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "triage_class_f1",
				Help: "Held-out F1 score per ticket category",
			},
			[]string{"category"},
		),
		Support: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "triage_class_support",
				Help: "Held-out tickets per true category",
			},
			[]string{"category"},
		),
		Accuracy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "triage_accuracy",
			Help: "Held-out accuracy of the latest model",
		}),
		Duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "triage_train_duration_seconds",
			Help: "Wall time of the latest training run",
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "triage_last_run_timestamp_seconds",
			Help: "Unix time the latest training run started",
		}),
	}

	reg.MustRegister(c.Precision, c.Recall, c.F1, c.Support, c.Accuracy, c.Duration, c.LastRun)
	return c
}

// Observe sets every gauge from a finished run.
func (c *Collectors) Observe(r eval.Report, run store.Run) {
	for _, label := range r.Labels {
		m := r.Classes[label]
		c.Precision.WithLabelValues(label).Set(m.Precision)
		c.Recall.WithLabelValues(label).Set(m.Recall)
		c.F1.WithLabelValues(label).Set(m.F1)
		c.Support.WithLabelValues(label).Set(float64(m.Support))
	}
	c.Accuracy.Set(r.Accuracy)
	c.Duration.Set(run.Duration.Seconds())
	c.LastRun.Set(float64(run.StartedAt.Unix()))
}

// WriteTextfile writes the run's metrics in the node-exporter textfile
// format. The file is replaced atomically.
func WriteTextfile(path string, r eval.Report, run store.Run) error {
	reg := prometheus.NewRegistry()
	NewCollectors(reg).Observe(r, run)
	return prometheus.WriteToTextfile(path, reg)
}
