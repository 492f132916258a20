package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	redirectFound    = "found"
	redirectNotFound = "not_found"
	redirectError    = "error"
)

var (
	linksCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinylink_links_created_total",
			Help: "Links created or reactivated through the API",
		},
		[]string{"status"},
	)

	redirectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinylink_redirects_total",
			Help: "Redirect requests by outcome",
		},
		[]string{"result"},
	)
)
