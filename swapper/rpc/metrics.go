package rpc

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/models"
)

const meterName = "github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/rpc"

var (
	swapRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swapper",
		Name:      "swap_requests_total",
		Help:      "Swap requests by direction and outcome.",
	}, []string{"direction", "outcome", "reason"})

	estimateRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swapper",
		Name:      "estimate_requests_total",
		Help:      "Estimate requests by outcome.",
	}, []string{"outcome", "reason"})

	// set by initInstruments once the OTel meter provider exists
	requestDuration otelmetric.Float64Histogram
)

// initInstruments creates the OTel instruments from the global meter provider
func initInstruments() error {
	meter := otel.Meter(meterName)
	histogram, err := meter.Float64Histogram(
		"swapper.request.duration",
		otelmetric.WithUnit("s"),
		otelmetric.WithDescription("Time spent preparing swaps and estimates."),
	)
	if err != nil {
		return err
	}
	requestDuration = histogram
	return nil
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func observeDuration(ctx context.Context, operation string, start time.Time, success bool) {
	if requestDuration == nil {
		return
	}
	requestDuration.Record(ctx, time.Since(start).Seconds(), otelmetric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome(success)),
	))
}

func recordSwap(ctx context.Context, direction string, start time.Time, resp models.SwapResponse) {
	swapRequests.WithLabelValues(direction, outcome(resp.Success), string(resp.Reason)).Inc()
	observeDuration(ctx, direction, start, resp.Success)
}

func recordEstimate(ctx context.Context, start time.Time, resp models.EstimateResponse) {
	estimateRequests.WithLabelValues(outcome(resp.Success), string(resp.Reason)).Inc()
	observeDuration(ctx, "estimate", start, resp.Success)
}
