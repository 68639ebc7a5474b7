package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer exports submission pipeline metrics to Prometheus. A nil
// *Observer is valid and records nothing.
type Observer struct {
	uploads     *prometheus.CounterVec
	tiers       *prometheus.CounterVec
	links       *prometheus.CounterVec
	submissions *prometheus.HistogramVec
}

// NewObserver registers the pipeline collectors on reg (the default
// registerer when nil).
func NewObserver(namespace string, reg prometheus.Registerer) (*Observer, error) {
	if namespace == "" {
		namespace = "submission_pipeline"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &Observer{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Media uploads by outcome.",
		}, []string{"outcome"}),
		tiers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_attempts_total",
			Help:      "Content creation attempts by tier and outcome.",
		}, []string{"tier", "outcome"}),
		links: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_steps_total",
			Help:      "Media link writes by step and outcome.",
		}, []string{"step", "outcome"}),
		submissions: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_seconds",
			Help:      "End-to-end submission latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}

	collectors := []prometheus.Collector{o.uploads, o.tiers, o.links, o.submissions}
	for i, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, fmt.Errorf("register pipeline metric: %w", err)
			}
			switch i {
			case 0:
				o.uploads = are.ExistingCollector.(*prometheus.CounterVec)
			case 1:
				o.tiers = are.ExistingCollector.(*prometheus.CounterVec)
			case 2:
				o.links = are.ExistingCollector.(*prometheus.CounterVec)
			case 3:
				o.submissions = are.ExistingCollector.(*prometheus.HistogramVec)
			}
		}
	}

	return o, nil
}

func (o *Observer) RecordUpload(err error) {
	if o == nil {
		return
	}
	o.uploads.WithLabelValues(outcome(err)).Inc()
}

func (o *Observer) RecordTier(tier string, err error) {
	if o == nil {
		return
	}
	o.tiers.WithLabelValues(tier, outcome(err)).Inc()
}

// RecordLink counts one linker step; result is "linked", "already_linked",
// "updated" or "failed".
func (o *Observer) RecordLink(step, result string) {
	if o == nil {
		return
	}
	o.links.WithLabelValues(step, result).Inc()
}

func (o *Observer) ObserveSubmission(d time.Duration, err error) {
	if o == nil {
		return
	}
	o.submissions.WithLabelValues(outcome(err)).Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
