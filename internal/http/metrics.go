package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posto_bookings_created_total",
		Help: "Number of day bookings created.",
	})
	bookingConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posto_booking_conflicts_total",
		Help: "Number of booking attempts rejected because the date was taken.",
	})
	bookingsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posto_bookings_deleted_total",
		Help: "Number of day bookings deleted.",
	})
	statusToggles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posto_period_status_toggles_total",
		Help: "Number of paid-status toggles on billing periods.",
	})
	statementsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posto_statements_published_total",
		Help: "Number of statement requests published to the delivery queue.",
	})
)
