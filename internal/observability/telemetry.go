package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/666daji/Food-Craft-sub000/internal/config"
	"github.com/666daji/Food-Craft-sub000/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// ShutdownFunc сбрасывает накопленные спаны и останавливает экспорт
type ShutdownFunc func(context.Context) error

// InitTelemetry ставит глобальный TracerProvider с OTLP/HTTP экспортом.
// Пустой TracingEndpoint оставляет выбор адреса переменным OTEL_EXPORTER_OTLP_*.
func InitTelemetry(ctx context.Context, cfg config.ServerConfig) (ShutdownFunc, error) {
	var opts []otlptracehttp.Option
	if cfg.TracingEndpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.TracingEndpoint), otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	ratio := cfg.TraceSampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(tp)
	logging.Info("tracing enabled: service=%s sample_ratio=%.2f", cfg.ServiceName, ratio)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}

// Noop используется, когда трассировка выключена
func Noop(context.Context) error { return nil }
