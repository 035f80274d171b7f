package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// アプリのビジネスメトリクス。
// nilレシーバで呼ばれても何もしない（メトリクス未設定の環境向け）。
type AppMetrics struct {
	OrdersPlaced      metric.Int64Counter
	RevenueMinor      metric.Int64Counter
	CartMutations     metric.Int64Counter
	ReviewsWritten    metric.Int64Counter
	PaymentsConfirmed metric.Int64Counter
}

// OTLP HTTPエクスポータでMeterProviderを初期化する。
func Init(ctx context.Context, endpoint string, serviceName string) (*AppMetrics, *sdkmetric.MeterProvider, error) {
	exporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(endpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(15*time.Second),
		)),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	m := &AppMetrics{}

	if m.OrdersPlaced, err = meter.Int64Counter("orders_placed_total",
		metric.WithDescription("Number of orders placed")); err != nil {
		return nil, nil, err
	}
	if m.RevenueMinor, err = meter.Int64Counter("revenue_minor_total",
		metric.WithDescription("Order revenue in minor currency units")); err != nil {
		return nil, nil, err
	}
	if m.CartMutations, err = meter.Int64Counter("cart_mutations_total",
		metric.WithDescription("Cart add/remove/clear operations")); err != nil {
		return nil, nil, err
	}
	if m.ReviewsWritten, err = meter.Int64Counter("reviews_written_total",
		metric.WithDescription("Review create/update/delete operations")); err != nil {
		return nil, nil, err
	}
	if m.PaymentsConfirmed, err = meter.Int64Counter("payments_confirmed_total",
		metric.WithDescription("Payment confirmations by final status")); err != nil {
		return nil, nil, err
	}

	return m, provider, nil
}

func (m *AppMetrics) RecordOrderPlaced(ctx context.Context, totalMinor int64) {
	if m == nil {
		return
	}
	m.OrdersPlaced.Add(ctx, 1)
	m.RevenueMinor.Add(ctx, totalMinor)
}

func (m *AppMetrics) RecordCartMutation(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.CartMutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (m *AppMetrics) RecordReviewWritten(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.ReviewsWritten.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (m *AppMetrics) RecordPaymentConfirmed(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.PaymentsConfirmed.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
