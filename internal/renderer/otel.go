package renderer

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/trackreel/trackreel/internal/renderer"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
