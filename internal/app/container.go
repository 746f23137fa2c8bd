package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"vendingmachine/internal/config"
	"vendingmachine/internal/httpapi"
	"vendingmachine/internal/platform/kafka"
	"vendingmachine/internal/platform/observability"
	"vendingmachine/internal/vending"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Container holds expensive-to-create singleton resources and dependencies
type Container struct {
	config             *config.Config
	logger             *zap.Logger
	tracer             observability.Tracer
	messageConsumer    kafka.Consumer
	messageProducer    kafka.Producer
	vendingService     *vending.DefaultService
	consumerService    vending.ConsumerService
	httpServer         *http.Server
	otelLogShutdown    func(context.Context) error
	otelTraceShutdown  func(context.Context) error
	otelMetricShutdown func(context.Context) error
}

// NewContainer creates and initializes all infrastructure components
func NewContainer(ctx context.Context) (*Container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	container := &Container{
		config: cfg,
	}

	// Bootstrap logger until the OTel bridge is ready
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	container.logger = logger

	if err := container.setupObservability(ctx); err != nil {
		return nil, err
	}

	if err := container.setupVending(); err != nil {
		return nil, err
	}

	return container, nil
}

// setupObservability configures OpenTelemetry logging, tracing and metrics, then Kafka
func (c *Container) setupObservability(ctx context.Context) error {
	otelLogShutdown, err := observability.SetupLoggingSDK(ctx, c.config)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry logging", zap.Error(err))
	}
	c.otelLogShutdown = otelLogShutdown

	tp, otelTraceShutdown, err := observability.SetupTracingSDK(ctx, c.config)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry tracing", zap.Error(err))
	}
	c.otelTraceShutdown = otelTraceShutdown

	otelMetricShutdown, err := observability.SetupMetricsSDK(ctx, c.config)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry metrics", zap.Error(err))
	}
	c.otelMetricShutdown = otelMetricShutdown

	c.logger = observability.NewLogger(c.config.MachineID)
	c.logger.Info("Logger re-initialized with OpenTelemetry bridge")

	c.tracer = otel.Tracer(config.ServiceName)

	var provider trace.TracerProvider = otel.GetTracerProvider()
	if tp != nil {
		provider = tp
	}
	return c.setupKafkaWithTracer(provider)
}

// setupKafkaWithTracer initializes Kafka consumer and producer with OpenTelemetry
func (c *Container) setupKafkaWithTracer(tp trace.TracerProvider) error {
	readerConfig := kafkago.ReaderConfig{
		Brokers: []string{c.config.KafkaBroker},
		Topic:   config.CommandsTopic,
		GroupID: config.GroupID,
	}

	baseReader := kafkago.NewReader(readerConfig)
	reader, err := otelkafka.NewReader(baseReader,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
	)
	if err != nil {
		return err
	}
	c.messageConsumer = reader

	baseWriter := &kafkago.Writer{
		Addr:         kafkago.TCP(c.config.KafkaBroker),
		Topic:        config.EventsTopic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: config.BatchTimeout,
		BatchSize:    config.BatchSize,
	}

	writer, err := otelkafka.NewWriter(baseWriter,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				semconv.MessagingDestinationNameKey.String(config.EventsTopic),
				attribute.String("messaging.kafka.client_id", config.ServiceName),
			},
		),
	)
	if err != nil {
		return err
	}
	c.messageProducer = writer

	return nil
}

// setupVending builds the machine and everything that drives it
func (c *Container) setupVending() error {
	machine := vending.NewMachineWithRegister(vending.Coins{
		Quarters: c.config.InitialCoins,
		Dimes:    c.config.InitialCoins,
		Nickels:  c.config.InitialCoins,
		Pennies:  c.config.InitialCoins,
	})

	svc, err := vending.NewService(machine, c.logger, c.tracer, otel.Meter(config.ServiceName))
	if err != nil {
		return err
	}
	c.vendingService = svc

	handler := vending.NewMessageHandler(svc, c.messageProducer, c.logger, c.config.MachineID)
	c.consumerService = vending.NewConsumerService(c.messageConsumer, handler, c.logger)

	c.httpServer = &http.Server{
		Addr:         c.config.HTTPAddr,
		ReadTimeout:  time.Second,
		WriteTimeout: 10 * time.Second,
		Handler:      httpapi.NewServer(svc, c.logger).Handler(),
	}
	return nil
}

// BindHTTPContext makes every request context derive from ctx
func (c *Container) BindHTTPContext(ctx context.Context) {
	c.httpServer.BaseContext = func(_ net.Listener) context.Context { return ctx }
}

// Shutdown gracefully shuts down all infrastructure components
func (c *Container) Shutdown(ctx context.Context) {
	c.logger.Info("Shutting down infrastructure...")

	if c.messageConsumer != nil {
		if err := c.messageConsumer.Close(); err != nil {
			c.logger.Error("Failed to close message consumer", zap.Error(err))
		}
	}

	if c.messageProducer != nil {
		if err := c.messageProducer.Close(); err != nil {
			c.logger.Error("Failed to close message producer", zap.Error(err))
		}
	}

	if c.otelMetricShutdown != nil {
		if err := c.otelMetricShutdown(ctx); err != nil {
			c.logger.Error("Failed to shutdown OTel metrics", zap.Error(err))
		}
	}

	if c.otelTraceShutdown != nil {
		if err := c.otelTraceShutdown(ctx); err != nil {
			c.logger.Error("Failed to shutdown OTel tracing", zap.Error(err))
		}
	}

	if c.otelLogShutdown != nil {
		if err := c.otelLogShutdown(ctx); err != nil {
			c.logger.Error("Failed to shutdown OTel logging", zap.Error(err))
		}
	}

	if err := c.logger.Sync(); err != nil {
		// Can't log this error since logger might be closed
		fmt.Printf("Failed to sync logger: %v\n", err)
	}
}

// Getters for accessing infrastructure components
func (c *Container) Logger() *zap.Logger                      { return c.logger }
func (c *Container) Tracer() observability.Tracer             { return c.tracer }
func (c *Container) VendingService() vending.Service          { return c.vendingService }
func (c *Container) ConsumerService() vending.ConsumerService { return c.consumerService }
func (c *Container) HTTPServer() *http.Server                 { return c.httpServer }
