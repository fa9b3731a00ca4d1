// Package services – Prometheus instrumentation for the poll lifecycle.
//
// Label cardinality is kept deliberately tiny: delivery mode and outcome
// only, never user or poll identifiers.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	pollsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessionbot_polls_created_total",
		Help: "Total number of availability polls created.",
	})

	pollsClosed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessionbot_polls_closed_total",
		Help: "Total number of polls marked inactive (close and purge).",
	})

	votesRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessionbot_votes_recorded_total",
		Help: "Total number of availability responses recorded, re-votes included.",
	})

	// remindersSent counts reminder dispatch outcomes by delivery mode
	// ("channel"/"dm") and outcome ("delivered"/"failed"/"skipped").
	remindersSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sessionbot_reminders_total",
		Help: "Reminder dispatch attempts by delivery mode and outcome.",
	}, []string{"mode", "outcome"})

	dmFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessionbot_reminder_dm_failures_total",
		Help: "Individual direct-message deliveries that failed.",
	})
)

func init() {
	prometheus.MustRegister(pollsCreated, pollsClosed, votesRecorded, remindersSent, dmFailures)
}
