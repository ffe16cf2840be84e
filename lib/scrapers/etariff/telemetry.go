package etariff

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("scrapers/etariff")
