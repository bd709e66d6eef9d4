package reader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readerlink_provider_requests_total",
		Help: "Provider HTTP requests by provider and response status",
	}, []string{"provider", "status"})

	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readerlink_token_refresh_total",
		Help: "Access token refresh attempts by provider and outcome",
	}, []string{"provider", "outcome"})
)
