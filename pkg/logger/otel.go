/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package logger

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.31.0"
	"google.golang.org/grpc/credentials"
)

var (
	ErrOTelLoggingDisabled  = errors.New("OTel logging is disabled")
	ErrOTelEndpointRequired = errors.New("OTel endpoint is required when enabled")
	errFailedToParseCACert  = errors.New("failed to parse CA certificate")
)

const (
	defaultScope          = "satconnect"
	maxAttributeValueSize = 4096
)

// OTelConfig enables OTLP/gRPC export of every log line.
type OTelConfig struct {
	Enabled      bool              `json:"enabled" yaml:"enabled"`
	Endpoint     string            `json:"endpoint" yaml:"endpoint"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	ServiceName  string            `json:"service_name" yaml:"service_name"`
	BatchTimeout Duration          `json:"batch_timeout" yaml:"batch_timeout"`
	Insecure     bool              `json:"insecure" yaml:"insecure"`
	TLS          *TLSConfig        `json:"tls,omitempty" yaml:"tls,omitempty"`
}

type TLSConfig struct {
	CertFile string `json:"cert_file" yaml:"cert_file"`
	KeyFile  string `json:"key_file" yaml:"key_file"`
	CAFile   string `json:"ca_file,omitempty" yaml:"ca_file,omitempty"`
}

// OTelWriter is an io.Writer that turns zerolog JSON lines into OTel log
// records. One OTel logger is kept per "component" field.
type OTelWriter struct {
	provider *sdklog.LoggerProvider
	ctx      context.Context

	mu      sync.Mutex
	loggers map[string]otellog.Logger
}

func NewOTelWriter(ctx context.Context, config OTelConfig) (*OTelWriter, error) {
	if !config.Enabled {
		return nil, ErrOTelLoggingDisabled
	}

	if config.Endpoint == "" {
		return nil, ErrOTelEndpointRequired
	}

	opts := []otlploggrpc.Option{
		otlploggrpc.WithEndpoint(config.Endpoint),
	}

	if config.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	} else if config.TLS != nil {
		tlsConfig, err := setupTLSConfig(config.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to setup TLS configuration: %w", err)
		}

		opts = append(opts, otlploggrpc.WithTLSCredentials(credentials.NewTLS(tlsConfig)))
	}

	if len(config.Headers) > 0 {
		opts = append(opts, otlploggrpc.WithHeaders(config.Headers))
	}

	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}

	serviceName := config.ServiceName
	if serviceName == "" {
		serviceName = defaultScope
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	batchTimeout := time.Duration(config.BatchTimeout)
	if batchTimeout == 0 {
		batchTimeout = defaultOTelBatchTimeout
	}

	processor := sdklog.NewBatchProcessor(exporter, sdklog.WithExportTimeout(batchTimeout))

	return &OTelWriter{
		provider: sdklog.NewLoggerProvider(
			sdklog.WithResource(res),
			sdklog.WithProcessor(processor),
		),
		ctx:     ctx,
		loggers: make(map[string]otellog.Logger),
	}, nil
}

func (w *OTelWriter) Write(p []byte) (int, error) {
	scope, record, ok := RecordFromJSON(p)
	if !ok {
		return len(p), nil
	}

	w.mu.Lock()
	logger, found := w.loggers[scope]

	if !found {
		logger = w.provider.Logger(scope)
		w.loggers[scope] = logger
	}
	w.mu.Unlock()

	logger.Emit(w.ctx, record)

	return len(p), nil
}

// Shutdown flushes pending records and stops the exporter.
func (w *OTelWriter) Shutdown(ctx context.Context) error {
	return w.provider.Shutdown(ctx)
}

// RecordFromJSON converts one zerolog line. The scope is the line's component
// field; time, level and message map to the record's own fields and every
// other field becomes a string attribute.
func RecordFromJSON(p []byte) (string, otellog.Record, bool) {
	var record otellog.Record

	entry := make(map[string]interface{})
	if err := json.Unmarshal(p, &entry); err != nil {
		return "", record, false
	}

	if timestamp, ok := entry["time"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, timestamp); err == nil {
			record.SetTimestamp(parsed)
			delete(entry, "time")
		}
	}

	if level, ok := entry["level"].(string); ok {
		record.SetSeverity(severityFor(level))
		record.SetSeverityText(level)
		delete(entry, "level")
	}

	if message, ok := entry["message"].(string); ok {
		record.SetBody(otellog.StringValue(message))
		delete(entry, "message")
	}

	scope := defaultScope
	if component, ok := entry["component"].(string); ok && component != "" {
		scope = component
		delete(entry, "component")
	}

	for key, value := range entry {
		record.AddAttributes(otellog.String(key, attributeValue(value)))
	}

	return scope, record, true
}

func attributeValue(value interface{}) string {
	var s string

	switch v := value.(type) {
	case nil:
		s = "null"
	case string:
		s = v
	case bool, float64:
		s = fmt.Sprintf("%v", v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			s = fmt.Sprintf("%v", v)
		} else {
			s = string(b)
		}
	}

	if len(s) > maxAttributeValueSize {
		s = strings.ToValidUTF8(s[:maxAttributeValueSize-3], "") + "..."
	}

	return s
}

func severityFor(level string) otellog.Severity {
	switch strings.ToLower(level) {
	case "trace":
		return otellog.SeverityTrace
	case "debug":
		return otellog.SeverityDebug
	case "warn", "warning":
		return otellog.SeverityWarn
	case "error":
		return otellog.SeverityError
	case "fatal", "panic":
		return otellog.SeverityFatal
	default:
		return otellog.SeverityInfo
	}
}

func setupTLSConfig(tlsConfig *TLSConfig) (*tls.Config, error) {
	config := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if tlsConfig.CertFile != "" && tlsConfig.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(tlsConfig.CertFile, tlsConfig.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}

		config.Certificates = []tls.Certificate{cert}
	}

	if tlsConfig.CAFile != "" {
		caCert, err := os.ReadFile(tlsConfig.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errFailedToParseCACert
		}

		config.RootCAs = pool
	}

	return config, nil
}
