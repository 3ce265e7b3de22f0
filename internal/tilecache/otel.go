package tilecache

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/trackreel/trackreel/internal/tilecache"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
