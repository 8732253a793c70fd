// Package metrics exposes Prometheus collectors for the conversation core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder counts the events the dashboard and alerts care about.
type Recorder struct {
	deliveriesTotal *prometheus.CounterVec
	rateFetchTotal  *prometheus.CounterVec
	handoffsTotal   prometheus.Counter
	approvalsTotal  *prometheus.CounterVec
	sendFailures    prometheus.Counter
}

// NewRecorder registers and returns the collectors.
func NewRecorder() *Recorder {
	return &Recorder{
		deliveriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assist_webhook_deliveries_total",
				Help: "Inbound webhook deliveries by outcome",
			},
			[]string{"outcome"}, // processed, duplicate, handed_off
		),
		rateFetchTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assist_rate_fetch_total",
				Help: "Rate refresh attempts by resulting source tag",
			},
			[]string{"source"},
		),
		handoffsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "assist_handoffs_total",
				Help: "Conversations switched to agent mode",
			},
		),
		approvalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assist_approvals_total",
				Help: "Approval requests by status transition",
			},
			[]string{"status"},
		),
		sendFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "assist_send_failures_total",
				Help: "Outbound sends that returned an error",
			},
		),
	}
}

func (r *Recorder) Delivery(outcome string) {
	if r == nil {
		return
	}
	r.deliveriesTotal.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RateFetch(source string) {
	if r == nil {
		return
	}
	r.rateFetchTotal.WithLabelValues(source).Inc()
}

func (r *Recorder) Handoff() {
	if r == nil {
		return
	}
	r.handoffsTotal.Inc()
}

func (r *Recorder) Approval(status string) {
	if r == nil {
		return
	}
	r.approvalsTotal.WithLabelValues(status).Inc()
}

func (r *Recorder) SendFailure() {
	if r == nil {
		return
	}
	r.sendFailures.Inc()
}
