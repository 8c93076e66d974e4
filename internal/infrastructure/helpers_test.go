package infrastructure

import (
	"trackattr/pkg/logger"
	"trackattr/pkg/metrics"
)

// Prometheus collectors register globally, so the whole package shares one
// metrics instance.
var testMetrics = metrics.New()

var testLog = logger.New("error")
