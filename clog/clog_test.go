package clog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/stufflog/nsfilter"
)

// newTestLogger 创建写入缓冲区、使用独立注册表的 Logger
func newTestLogger(t *testing.T, cfg *Config, opts ...Option) (Logger, *bytes.Buffer, *nsfilter.Registry) {
	t.Helper()
	var buf bytes.Buffer
	reg := nsfilter.New()
	opts = append([]Option{withWriter(&buf), WithRegistry(reg)}, opts...)
	logger, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return logger, &buf, reg
}

// parseLines 把缓冲区中的每一行解析为 JSON 对象
func parseLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	out := strings.TrimSpace(buf.String())
	if out == "" {
		return nil
	}
	var entries []map[string]any
	for i, line := range strings.Split(out, "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Line %d is not valid JSON: %v (%q)", i, err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

// TestNew 测试 Logger 创建
func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		opts    []Option
		wantErr bool
	}{
		{
			name:   "valid config",
			config: &Config{Level: "info", Format: "console", Output: "stdout"},
		},
		{
			name:   "nil config",
			config: nil,
		},
		{
			name:    "invalid level",
			config:  &Config{Level: "invalid"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			config:  &Config{Format: "xml"},
			wantErr: true,
		},
		{
			name:   "valid config with options",
			config: &Config{Level: "debug", Format: "json"},
			opts: []Option{
				WithNamespace("test", "service"),
				WithStandardContext(),
				WithTraceContext(),
				WithRegistry(nsfilter.New()),
			},
		},
		{
			name:    "capture without DSN",
			config:  &Config{Capture: &captureConfigWithoutDSN},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config, tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger on success")
			}
		})
	}
}

// TestLoggerLevels 测试日志级别功能
func TestLoggerLevels(t *testing.T) {
	logger, buf, _ := newTestLogger(t, &Config{Level: "debug", Format: "json"})

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	entries := parseLines(t, buf)
	if len(entries) != 4 {
		t.Fatalf("Expected 4 log lines, got %d", len(entries))
	}

	expected := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	for i, entry := range entries {
		if entry["level"] != expected[i] {
			t.Errorf("Line %d level = %v, want %s", i, entry["level"], expected[i])
		}
	}
}

// TestLoggerSetLevel 测试动态设置日志级别
func TestLoggerSetLevel(t *testing.T) {
	logger, buf, _ := newTestLogger(t, &Config{Level: "info", Format: "json"})

	logger.Debug("debug message") // 不应该显示
	logger.Info("info message")

	if err := logger.SetLevel(DebugLevel); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	// 派生的 Logger 共享级别
	logger.WithNamespace("child").Debug("debug after set")

	if err := logger.SetLevel(Level(42)); err == nil {
		t.Error("SetLevel(unknown) should fail")
	}

	entries := parseLines(t, buf)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 log lines, got %d: %q", len(entries), buf.String())
	}
	if entries[1]["msg"] != "debug after set" {
		t.Errorf("Second line msg = %v", entries[1]["msg"])
	}
}

// TestLoggerFields 测试字段经过拦截器后保持原样
func TestLoggerFields(t *testing.T) {
	logger, buf, _ := newTestLogger(t, &Config{Level: "debug", Format: "json"})

	testTime := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	logger.Info("test message",
		String("string_field", "test_value"),
		Int("int_field", 42),
		Int64("big_field", 9007199254740993),
		Float64("float_field", 3.14),
		Bool("bool_field", true),
		Time("time_field", testTime),
		Duration("elapsed", time.Second),
		Error(errors.New("test error")),
	)

	raw := strings.TrimSpace(buf.String())
	// 大整数以原始字面量保留
	if !strings.Contains(raw, `"big_field":9007199254740993`) {
		t.Errorf("big_field lost precision: %s", raw)
	}

	entry := parseLines(t, buf)[0]
	tests := map[string]any{
		"string_field": "test_value",
		"int_field":    float64(42),
		"float_field":  3.14,
		"bool_field":   true,
		"err":          "test error",
		"msg":          "test message",
	}
	for key, expected := range tests {
		if value, ok := entry[key]; !ok {
			t.Errorf("Missing field: %s", key)
		} else if value != expected {
			t.Errorf("Field %s = %v, want %v", key, value, expected)
		}
	}

	if s, ok := entry["time_field"].(string); !ok {
		t.Errorf("time_field is not string: %T", entry["time_field"])
	} else if _, err := time.Parse(time.RFC3339Nano, s); err != nil {
		t.Errorf("time_field is not RFC3339Nano: %v", err)
	}
	if s, ok := entry["time"].(string); !ok {
		t.Error("Missing time field")
	} else if _, err := time.Parse(TimeFormat, s); err != nil {
		t.Errorf("time does not match TimeFormat: %v", err)
	}
}

// TestStackField 测试调用栈字段
func TestStackField(t *testing.T) {
	logger, buf, _ := newTestLogger(t, &Config{Format: "json"})
	logger.Info("with stack", Stack())

	entry := parseLines(t, buf)[0]
	stack, _ := entry["stack"].(string)
	if !strings.Contains(stack, "TestStackField") {
		t.Errorf("stack should start at the caller, got %q", stack)
	}
}

// 定义 Context 键类型避免冲突
type contextKey string

// TestLoggerWithContext 测试 Context 字段和追踪标识提取
func TestLoggerWithContext(t *testing.T) {
	logger, buf, _ := newTestLogger(t, &Config{Level: "debug", Format: "json"},
		WithContextField(contextKey("user_id"), "user_id"),
		WithTraceContext(),
	)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	ctx = context.WithValue(ctx, contextKey("user_id"), "user-456")

	logger.InfoContext(ctx, "message with context")
	logger.InfoContext(context.Background(), "no context values")

	entries := parseLines(t, buf)
	if entries[0]["user_id"] != "user-456" {
		t.Errorf("user_id = %v", entries[0]["user_id"])
	}
	if entries[0]["trace_id"] != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace_id = %v", entries[0]["trace_id"])
	}
	if entries[0]["span_id"] != "00f067aa0ba902b7" {
		t.Errorf("span_id = %v", entries[0]["span_id"])
	}
	if _, ok := entries[1]["trace_id"]; ok {
		t.Error("trace_id should be absent without a span")
	}
}

// TestLoggerWithNamespace 测试命名空间以 ":" 连接并写入输出
func TestLoggerWithNamespace(t *testing.T) {
	logger, buf, _ := newTestLogger(t, &Config{Format: "json"}, WithNamespace("service"))

	namespaced := logger.WithNamespace("api", "v1")
	namespaced.Info("namespaced message")

	if got := namespaced.Namespace(); got != "service:api:v1" {
		t.Errorf("Namespace() = %q, want service:api:v1", got)
	}
	if logger.Namespace() != "service" {
		t.Errorf("parent namespace changed to %q", logger.Namespace())
	}

	entry := parseLines(t, buf)[0]
	if entry["namespace"] != "service:api:v1" {
		t.Errorf("namespace = %v, want service:api:v1", entry["namespace"])
	}
}

// TestLoggerNamespaceFiltering 测试命名空间开关决定是否输出
func TestLoggerNamespaceFiltering(t *testing.T) {
	logger, buf, reg := newTestLogger(t, &Config{Format: "json"})
	db := logger.WithNamespace("app", "db")
	http := logger.WithNamespace("app", "http")
	billing := logger.WithNamespace("billing")

	reg.Enable("app:db")

	db.Info("db visible")
	http.Info("http visible via generalized pattern")
	billing.Info("billing hidden")
	logger.Info("root logger has no namespace")

	entries := parseLines(t, buf)
	var msgs []string
	for _, e := range entries {
		msgs = append(msgs, e["msg"].(string))
	}
	want := []string{"db visible", "http visible via generalized pattern", "root logger has no namespace"}
	if strings.Join(msgs, "|") != strings.Join(want, "|") {
		t.Errorf("messages = %q, want %q", msgs, want)
	}

	if billing.Enabled() {
		t.Error("billing should be disabled")
	}
	billing.Enable()
	if !billing.Enabled() {
		t.Error("billing should be enabled after Enable()")
	}
	billing.Disable()
	if billing.Enabled() {
		t.Error("billing should be disabled after Disable()")
	}

	// 根 Logger 的 Enable 是空操作
	logger.Enable()
	if got := reg.Patterns(); len(got) != 1 || got[0] != "app:db" {
		t.Errorf("Patterns() = %q", got)
	}
}

// TestLoggerWith 测试 With 功能
func TestLoggerWith(t *testing.T) {
	logger, buf, _ := newTestLogger(t, &Config{Format: "json"}, WithNamespace("svc"))

	child := logger.With(String("component", "test"), Int("version", 1))
	child.Info("message with preset fields")

	entry := parseLines(t, buf)[0]
	if entry["component"] != "test" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["version"] != float64(1) {
		t.Errorf("version = %v", entry["version"])
	}
	if child.Namespace() != "svc" {
		t.Errorf("With changed namespace to %q", child.Namespace())
	}
}

func TestLoggerWith_DerivedLoggerDoesNotMutateSiblings(t *testing.T) {
	logger, buf, _ := newTestLogger(t, &Config{Format: "json"})

	// 覆盖 append 复用底层数组导致兄弟 Logger 字段互相污染的场景
	base := logger.With(
		String("k1", "v1"),
		String("k2", "v2"),
		String("k3", "v3"),
		String("k4", "v4"),
	).With(String("k5", "v5"))

	a := base.With(String("x", "A"))
	_ = base.With(String("x", "B"))
	a.Info("msg")

	entries := parseLines(t, buf)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 log line, got %d", len(entries))
	}
	if entries[0]["x"] != "A" {
		t.Fatalf("x = %v, want A", entries[0]["x"])
	}
}

// TestConfigValidation 测试配置验证与默认值
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"empty config uses defaults", Config{}, false},
		{"warning alias", Config{Level: "WARNING"}, false},
		{"console format", Config{Format: "console"}, false},
		{"invalid level", Config{Level: "verbose"}, true},
		{"invalid format", Config{Format: "logfmt"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (cfg.Level == "" || cfg.Format == "" || cfg.Output == "") {
				t.Errorf("defaults not applied: %+v", cfg)
			}
		})
	}
}

// TestParseLevel 测试级别解析
func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"warn", WarnLevel, false},
		{" error ", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"trace", InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// TestLevelString 测试级别名称
func TestLevelString(t *testing.T) {
	for level, want := range map[Level]string{
		DebugLevel: "debug",
		InfoLevel:  "info",
		WarnLevel:  "warn",
		ErrorLevel: "error",
		FatalLevel: "fatal",
	} {
		if got := level.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", level, got, want)
		}
	}
}

// TestErrorFieldWithNil 测试 Error(nil) 不产生字段
func TestErrorFieldWithNil(t *testing.T) {
	logger, buf, _ := newTestLogger(t, &Config{Format: "json"})
	logger.Info("no error", Error(nil))

	entry := parseLines(t, buf)[0]
	if _, ok := entry["err"]; ok {
		t.Error("Error(nil) should not add err field")
	}
}

// TestConsoleFormat 测试文本格式原样透传，但仍受命名空间控制
func TestConsoleFormat(t *testing.T) {
	logger, buf, reg := newTestLogger(t, &Config{Format: "console"}, WithNamespace("web"))

	logger.Info("console message", String("key", "value"), Int("count", 1))

	output := buf.String()
	for _, want := range []string{"console message", "key=value", "count=1", "level=INFO"} {
		if !strings.Contains(output, want) {
			t.Errorf("Output %q doesn't contain %q", output, want)
		}
	}

	buf.Reset()
	reg.Enable("api:*")
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("disabled namespace wrote %q", buf.String())
	}
}

// TestAddSource 测试调用位置字段
func TestAddSource(t *testing.T) {
	logger, buf, _ := newTestLogger(t, &Config{Level: "debug", Format: "json", AddSource: true})
	logger.Debug("message with source")

	entry := parseLines(t, buf)[0]
	caller, _ := entry["caller"].(string)
	if !strings.HasPrefix(caller, "clog/clog_test.go:") {
		t.Errorf("caller = %q, want clog/clog_test.go:<line>", caller)
	}
}

// TestAsyncConsole 测试异步输出在 Flush 后可见
func TestAsyncConsole(t *testing.T) {
	var buf lockedBuffer
	logger, err := New(&Config{Format: "json", AsyncConsole: true},
		withWriter(&buf),
		WithRegistry(nsfilter.New()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 10; i++ {
		logger.Info("async", Int("i", i))
	}
	logger.Flush()

	if got := strings.Count(buf.String(), "\n"); got != 10 {
		t.Errorf("Expected 10 lines after Flush, got %d", got)
	}
}

// TestDiscard 测试静默 Logger
func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Info("ignored")
	logger.With(String("k", "v")).WithNamespace("a").Error("ignored")
	if logger.Enabled() || logger.Namespace() != "" {
		t.Error("Discard logger should be disabled and unnamed")
	}
	if err := logger.SetLevel(DebugLevel); err != nil {
		t.Errorf("SetLevel() error = %v", err)
	}
	logger.Flush()
}
