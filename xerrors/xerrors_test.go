package xerrors

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	// nil 错误应返回 nil
	if err := Wrap(nil, "context"); err != nil {
		t.Errorf("Wrap(nil) = %v，期望 nil", err)
	}

	base := errors.New("base error")
	wrapped := Wrap(base, "context")
	if wrapped.Error() != "context: base error" {
		t.Errorf("Wrap(err).Error() = %q，期望 %q", wrapped.Error(), "context: base error")
	}
	if !errors.Is(wrapped, base) {
		t.Error("errors.Is(wrapped, base) = false，期望 true")
	}
}

func TestWrapf(t *testing.T) {
	if err := Wrapf(nil, "ns %s", "db"); err != nil {
		t.Errorf("Wrapf(nil) = %v，期望 nil", err)
	}

	base := errors.New("unreachable")
	wrapped := Wrapf(base, "backend %s", "nats")
	if wrapped.Error() != "backend nats: unreachable" {
		t.Errorf("Wrapf(err).Error() = %q，期望 %q", wrapped.Error(), "backend nats: unreachable")
	}
}

func TestKinds(t *testing.T) {
	cause := errors.New("json: unsupported type")

	tests := []struct {
		name    string
		err     error
		is      func(error) bool
		message string
	}{
		{"config", Config("no DSN provided"), IsConfig, "config error: no DSN provided"},
		{"configf", Configf("bad scheme %q", "ftp"), IsConfig, `config error: bad scheme "ftp"`},
		{"serialization", Serialization(cause, "err field"), IsSerialization, "serialization error: err field: json: unsupported type"},
		{"decode", Decode(cause, ""), IsDecode, "decode error: json: unsupported type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.is(tt.err) {
				t.Errorf("%s: 类别判断 = false，期望 true", tt.name)
			}
			if tt.err.Error() != tt.message {
				t.Errorf("Error() = %q，期望 %q", tt.err.Error(), tt.message)
			}
		})
	}

	// 原因仍可通过 errors.Is 匹配
	if !errors.Is(Serialization(cause, "x"), cause) {
		t.Error("errors.Is(serialization, cause) = false，期望 true")
	}
	// 包装后类别不丢失
	if !IsConfig(Wrap(Config("x"), "init")) {
		t.Error("IsConfig(Wrap(config)) = false，期望 true")
	}
	// 类别互不混淆
	if IsDecode(Config("x")) {
		t.Error("IsDecode(config) = true，期望 false")
	}
}

func TestMust(t *testing.T) {
	if v := Must(42, nil); v != 42 {
		t.Errorf("Must(42, nil) = %d，期望 42", v)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("Must(_, err) 未触发 panic")
		}
	}()
	Must(0, errors.New("error"))
}

func TestCombine(t *testing.T) {
	if err := Combine(); err != nil {
		t.Errorf("Combine() = %v，期望 nil", err)
	}
	if err := Combine(nil, nil); err != nil {
		t.Errorf("Combine(nil, nil) = %v，期望 nil", err)
	}

	err1 := errors.New("error 1")
	if err := Combine(nil, err1, nil); err != err1 {
		t.Errorf("Combine(nil, err1, nil) = %v，期望 %v", err, err1)
	}

	err2 := errors.New("error 2")
	combined := Combine(err1, err2)
	multi, ok := combined.(*MultiError)
	if !ok {
		t.Fatalf("Combine(err1, err2) 类型 = %T，期望 *MultiError", combined)
	}
	if len(multi.Errors) != 2 {
		t.Errorf("multi.Errors 长度 = %d，期望 2", len(multi.Errors))
	}
	if multi.Error() != "error 1 (and 1 more errors)" {
		t.Errorf("multi.Error() = %q", multi.Error())
	}
	if !errors.Is(combined, err1) || !errors.Is(combined, err2) {
		t.Error("errors.Is 应能匹配 MultiError 中的每个错误")
	}
}

func TestReExports(t *testing.T) {
	err := New("test error")
	if !Is(Wrap(err, "ctx"), err) {
		t.Error("Is(Wrap(err), err) = false，期望 true")
	}

	var kinded *Error
	if !As(Config("x"), &kinded) || kinded.Kind != ErrConfig {
		t.Error("As(Config(...)) 应得到 Kind 为 ErrConfig 的 *Error")
	}

	joined := Join(New("a"), err)
	if !Is(joined, err) {
		t.Error("Join 合并的错误应能被 Is 匹配")
	}
}
