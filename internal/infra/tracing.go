package infra

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"exusiai.dev/crm-backup/internal/app/appconfig"
	"exusiai.dev/crm-backup/internal/pkg/bininfo"
)

// Tracing installs the global OpenTelemetry tracer provider used by the fiber
// and bun instrumentations. It is a no-op unless TracingEnabled.
func Tracing(conf *appconfig.Config, lc fx.Lifecycle) error {
	if !conf.TracingEnabled {
		return nil
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(conf.TracingSampleRate))),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "crm-backup"),
			attribute.String("service.version", bininfo.Version),
			attribute.String("deployment.environment", envName(conf)),
		)),
	}

	for _, name := range conf.TracingExporters {
		switch name {
		case "otlp":
			exporter, err := otlptracegrpc.New(context.Background())
			if err != nil {
				return errors.Wrap(err, "failed to create otlp exporter")
			}
			opts = append(opts, sdktrace.WithBatcher(exporter))
		case "stdout":
			exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
			if err != nil {
				return errors.Wrap(err, "failed to create stdout exporter")
			}
			opts = append(opts, sdktrace.WithSyncer(exporter))
		default:
			return errors.Errorf("unknown tracing exporter %q", name)
		}
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	log.Info().Strs("exporters", conf.TracingExporters).Msg("infra: tracing: enabled")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	return nil
}

func envName(conf *appconfig.Config) string {
	if conf.DevMode {
		return "dev"
	}
	return "prod"
}
