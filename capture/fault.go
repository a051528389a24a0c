package capture

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// EncapsulatedError 包装记录中不是 error 的 err 字段。
//
// Message 取自记录的 msg，其余字段尽力从原值中提取。
type EncapsulatedError struct {
	Message string
	Name    string
	Code    string
	Signal  string
	Stack   string
}

func (e *EncapsulatedError) Error() string { return e.Message }

// TypeName 上报时使用的异常类型名
func (e *EncapsulatedError) TypeName() string {
	if e.Name != "" {
		return e.Name
	}
	return "EncapsulatedError"
}

// IsConforming 判断值能否直接作为异常上报
func IsConforming(v any) bool {
	_, ok := v.(error)
	return ok
}

func encapsulate(msg string, v any) *EncapsulatedError {
	fields := inspect(v)
	return &EncapsulatedError{
		Message: msg,
		Name:    fields["name"],
		Code:    fields["code"],
		Signal:  fields["signal"],
		Stack:   fields["stack"],
	}
}

var faultKeys = []string{"name", "code", "signal", "stack"}

// inspect 从 map 的键或结构体字段（忽略大小写）中提取标量字段
func inspect(v any) map[string]string {
	out := make(map[string]string, len(faultKeys))
	switch m := v.(type) {
	case map[string]any:
		for _, k := range faultKeys {
			if s, ok := scalarString(m[k]); ok {
				out[k] = s
			}
		}
		return out
	case map[string]string:
		for _, k := range faultKeys {
			if s, ok := m[k]; ok {
				out[k] = s
			}
		}
		return out
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return out
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return out
	}
	for _, k := range faultKeys {
		f := rv.FieldByNameFunc(func(name string) bool { return strings.EqualFold(name, k) })
		if !f.IsValid() || !f.CanInterface() {
			continue
		}
		if s, ok := scalarString(f.Interface()); ok {
			out[k] = s
		}
	}
	return out
}

// scalarString 只转换标量，避免对可能循环的复合值调用 fmt
func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, x != ""
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(x), true
	default:
		return "", false
	}
}

// describe 生成可安全打印的描述
func describe(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	if p, err := json.Marshal(v); err == nil {
		return string(p)
	}
	return fmt.Sprintf("<%s>", typeName(v))
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
