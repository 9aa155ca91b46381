package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"diskwise/config"
	"diskwise/logger"
	"diskwise/model"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	otelLog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

type otelLogger struct {
	provider *sdklog.LoggerProvider
	logger   otelLog.Logger
	timeout  time.Duration
	endpoint string
	policy   otelPolicy
}

type otelPolicy struct {
	includeMounts bool
}

func newOtelLogger(cfg *config.Config) (*otelLogger, error) {
	if cfg == nil {
		return nil, nil
	}
	endpoint := resolveOtelEndpoint(cfg)
	if endpoint == "" {
		return nil, nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("otel endpoint must include scheme (http or https)")
	}

	opts := []otlploghttp.Option{otlploghttp.WithEndpointURL(endpoint)}
	if len(cfg.OtelHeaders) > 0 {
		opts = append(opts, otlploghttp.WithHeaders(cfg.OtelHeaders))
	}
	if cfg.OtelTimeout > 0 {
		opts = append(opts, otlploghttp.WithTimeout(cfg.OtelTimeout))
	}

	exp, err := otlploghttp.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(cfg.OtelServiceName),
	)
	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	)

	return &otelLogger{
		provider: provider,
		logger:   provider.Logger("diskwise"),
		timeout:  cfg.OtelTimeout,
		endpoint: endpoint,
		policy: otelPolicy{
			includeMounts: cfg.OtelExportMounts,
		},
	}, nil
}

func resolveOtelEndpoint(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	if endpoint := strings.TrimSpace(cfg.OtelEndpoint); endpoint != "" {
		return endpoint
	}
	if !cfg.OtelFromEnv {
		return ""
	}
	if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT")); endpoint != "" {
		return endpoint
	}
	return strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
}

func (o *otelLogger) Endpoint() string {
	if o == nil {
		return ""
	}
	return o.endpoint
}

func (o *otelLogger) Emit(recordType string, payload interface{}) {
	if o == nil || o.logger == nil {
		return
	}
	safePayload := sanitizePayload(recordType, payload, o.policy)

	var record otelLog.Record
	record.SetTimestamp(time.Now())
	record.SetObservedTimestamp(time.Now())
	record.SetEventName("diskwise.record")
	record.AddAttributes(
		otelLog.String("record_type", recordType),
		otelLog.String("schema_version", model.ReportVersion),
	)
	if attrs := semanticAttributes(recordType, safePayload); len(attrs) > 0 {
		record.AddAttributes(attrs...)
	}

	value := toLogValue(safePayload)
	if value.Kind() == otelLog.KindEmpty {
		if data, err := jsonMarshal(safePayload); err == nil {
			var decoded interface{}
			if err := json.Unmarshal(data, &decoded); err == nil {
				decodedValue := toLogValue(decoded)
				if decodedValue.Kind() != otelLog.KindEmpty {
					record.SetBody(decodedValue)
				} else {
					record.SetBody(otelLog.StringValue(string(data)))
				}
			} else {
				record.SetBody(otelLog.StringValue(string(data)))
			}
		}
	} else {
		record.SetBody(value)
	}

	o.logger.Emit(context.Background(), record)
}

func (o *otelLogger) Shutdown() {
	if o == nil || o.provider == nil {
		return
	}
	timeout := o.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := o.provider.Shutdown(ctx); err != nil {
		logger.Debugf("OTEL shutdown failed: %v", err)
	}
}

// sanitizePayload strips mount points and rationales that embed them unless
// the caller opted in with otel-export-mounts. Counts and classifications
// always export.
func sanitizePayload(recordType string, payload interface{}, policy otelPolicy) interface{} {
	if policy.includeMounts {
		return payload
	}
	data := payloadToMap(payload)
	if len(data) == 0 {
		return payload
	}

	switch recordType {
	case "disk":
		sanitized := cloneMap(data)
		delete(sanitized, "mount_point")
		delete(sanitized, "name")
		delete(sanitized, "vendor")
		delete(sanitized, "model")
		delete(sanitized, "ineligible_reasons")
		delete(sanitized, "metadata_notes")
		return sanitized
	case "recommendation":
		sanitized := cloneMap(data)
		delete(sanitized, "target_mount")
		delete(sanitized, "rationale")
		return sanitized
	case "policy_decision":
		sanitized := cloneMap(data)
		delete(sanitized, "rationale")
		return sanitized
	case "rule_trace":
		sanitized := cloneMap(data)
		delete(sanitized, "detail")
		return sanitized
	default:
		return payload
	}
}

func semanticAttributes(recordType string, payload interface{}) []otelLog.KeyValue {
	data := payloadToMap(payload)
	if len(data) == 0 {
		return nil
	}

	var kvs []otelLog.KeyValue
	switch recordType {
	case "disk":
		kvs = appendStringAttr(kvs, "diskwise.disk.storage_type", getStringField(data, "storage_type"))
		kvs = appendStringAttr(kvs, "diskwise.disk.locality_class", getStringField(data, "locality_class"))
		kvs = appendStringAttr(kvs, "diskwise.disk.performance_class", getStringField(data, "performance_class"))
		if total, ok := getInt64Field(data, "total_space_bytes"); ok {
			kvs = append(kvs, otelLog.Int64("diskwise.disk.total_space_bytes", total))
		}
		if free, ok := getInt64Field(data, "free_space_bytes"); ok {
			kvs = append(kvs, otelLog.Int64("diskwise.disk.free_space_bytes", free))
		}
	case "recommendation":
		kvs = appendStringAttr(kvs, "diskwise.recommendation.id", getStringField(data, "id"))
		kvs = appendStringAttr(kvs, "diskwise.recommendation.risk_level", getStringField(data, "risk_level"))
		if confidence, ok := getFloat64Field(data, "confidence"); ok {
			kvs = append(kvs, otelLog.Float64("diskwise.recommendation.confidence", confidence))
		}
	case "policy_decision":
		kvs = appendStringAttr(kvs, "diskwise.policy.id", getStringField(data, "policy_id"))
		kvs = appendStringAttr(kvs, "diskwise.policy.action", getStringField(data, "action"))
		kvs = appendStringAttr(kvs, "diskwise.policy.recommendation_id", getStringField(data, "recommendation_id"))
	case "rule_trace":
		kvs = appendStringAttr(kvs, "diskwise.rule.id", getStringField(data, "rule_id"))
		kvs = appendStringAttr(kvs, "diskwise.rule.status", getStringField(data, "status"))
	case "scenario":
		kvs = appendStringAttr(kvs, "diskwise.scenario.id", getStringField(data, "scenario_id"))
		if count, ok := getInt64Field(data, "recommendation_count"); ok {
			kvs = append(kvs, otelLog.Int64("diskwise.scenario.recommendation_count", count))
		}
		if saving, ok := getInt64Field(data, "projected_space_saving_bytes"); ok {
			kvs = append(kvs, otelLog.Int64("diskwise.scenario.projected_space_saving_bytes", saving))
		}
	case "metrics":
		kvs = appendStringAttr(kvs, "diskwise.metrics.start_time", getStringField(data, "start_time"))
		kvs = appendStringAttr(kvs, "diskwise.metrics.end_time", getStringField(data, "end_time"))
		if disks, ok := getInt64Field(data, "disks_analyzed"); ok {
			kvs = append(kvs, otelLog.Int64("diskwise.metrics.disks_analyzed", disks))
		}
		if recs, ok := getInt64Field(data, "recommendations"); ok {
			kvs = append(kvs, otelLog.Int64("diskwise.metrics.recommendations", recs))
		}
	}
	return kvs
}

func cloneMap(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func toLogValue(value interface{}) otelLog.Value {
	switch v := value.(type) {
	case nil:
		return otelLog.Value{}
	case string:
		return otelLog.StringValue(v)
	case []byte:
		return otelLog.BytesValue(v)
	case bool:
		return otelLog.BoolValue(v)
	case int:
		return otelLog.IntValue(v)
	case int64:
		return otelLog.Int64Value(v)
	case float64:
		return otelLog.Float64Value(v)
	case float32:
		return otelLog.Float64Value(float64(v))
	case map[string]interface{}:
		return otelLog.MapValue(toLogKeyValues(v)...)
	case map[string]string:
		kvs := make([]otelLog.KeyValue, 0, len(v))
		for k, val := range v {
			kvs = append(kvs, otelLog.String(k, val))
		}
		return otelLog.MapValue(kvs...)
	case []string:
		values := make([]otelLog.Value, 0, len(v))
		for _, item := range v {
			values = append(values, otelLog.StringValue(item))
		}
		return otelLog.SliceValue(values...)
	case []interface{}:
		values := make([]otelLog.Value, 0, len(v))
		for _, item := range v {
			values = append(values, toLogValue(item))
		}
		return otelLog.SliceValue(values...)
	default:
		return otelLog.Value{}
	}
}

func toLogKeyValues(values map[string]interface{}) []otelLog.KeyValue {
	kvs := make([]otelLog.KeyValue, 0, len(values))
	for key, value := range values {
		kvs = append(kvs, otelLog.KeyValue{Key: key, Value: toLogValue(value)})
	}
	return kvs
}

func payloadToMap(payload interface{}) map[string]interface{} {
	switch v := payload.(type) {
	case map[string]interface{}:
		return v
	case map[string]string:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			out[key] = value
		}
		return out
	default:
		data, err := jsonMarshal(payload)
		if err != nil {
			return nil
		}
		var decoded map[string]interface{}
		if err := json.Unmarshal(data, &decoded); err != nil {
			return nil
		}
		return decoded
	}
}

func getStringField(values map[string]interface{}, key string) string {
	value, ok := values[key]
	if !ok {
		return ""
	}
	if str, ok := value.(string); ok {
		return str
	}
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}

func getInt64Field(values map[string]interface{}, key string) (int64, bool) {
	value, ok := values[key]
	if !ok || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	case float32:
		return int64(v), true
	case json.Number:
		if parsed, err := v.Int64(); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

func getFloat64Field(values map[string]interface{}, key string) (float64, bool) {
	value, ok := values[key]
	if !ok || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		if parsed, err := v.Float64(); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

func appendStringAttr(kvs []otelLog.KeyValue, key, value string) []otelLog.KeyValue {
	if value == "" {
		return kvs
	}
	return append(kvs, otelLog.String(key, value))
}
