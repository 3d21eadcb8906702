package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipsmith_http_requests_total",
		Help: "Status API requests by path and response code.",
	}, []string{"path", "code"})

	readyGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clipsmith_ready",
		Help: "1 when the last preflight report was ready, 0 otherwise.",
	})
)

func setReadyGauge(ready bool) {
	if ready {
		readyGauge.Set(1)
		return
	}
	readyGauge.Set(0)
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
