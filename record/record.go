// Package record 定义在拦截器与故障上报之间流转的结构化日志记录。
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/ceyewan/stufflog/xerrors"
)

// 已知字段名
const (
	KeyMsg       = "msg"
	KeyLevel     = "level"
	KeyErr       = "err"
	KeyTags      = "tags"
	KeyNamespace = "namespace"
	KeyCallback  = "callback"
)

// Callback 在故障上报完成后被调用至多一次。
//
// sendErr 为发送失败的原因，成功时为 nil；eventID 为后端返回的追踪标识。
type Callback func(sendErr error, eventID string)

// Record 一条结构化日志记录。
//
// 未知字段保存在 Extra 中并原样输出，Callback 永远不会被序列化。
type Record struct {
	Msg       string
	Level     string
	Err       any
	Tags      map[string]string
	Callback  Callback
	Namespace string
	Extra     map[string]any
}

// Decode 将一段 JSON 对象解析为 Record，非对象输入返回解码错误
func Decode(p []byte) (*Record, error) {
	rec := &Record{}
	if err := rec.UnmarshalJSON(p); err != nil {
		return nil, err
	}
	return rec, nil
}

// Clone 浅拷贝记录，Tags 和 Extra 使用新的 map
func (r *Record) Clone() *Record {
	c := *r
	c.Tags = maps.Clone(r.Tags)
	c.Extra = maps.Clone(r.Extra)
	return &c
}

// Fields 返回扁平化后的字段视图，不包含 callback
func (r *Record) Fields() map[string]any {
	out := make(map[string]any, len(r.Extra)+5)
	maps.Copy(out, r.Extra)
	if r.Msg != "" {
		out[KeyMsg] = r.Msg
	}
	if r.Level != "" {
		out[KeyLevel] = r.Level
	}
	if r.Namespace != "" {
		out[KeyNamespace] = r.Namespace
	}
	if len(r.Tags) > 0 {
		out[KeyTags] = r.Tags
	}
	if r.Err != nil {
		out[KeyErr] = encodableErr(r.Err)
	}
	return out
}

// MarshalJSON 输出为单个扁平对象
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

// DecodeFields 将一段 JSON 对象解析为通用 map，数字保留原始字面量。
// 所有字段（包括空值和嵌套结构）原样保留，非对象输入返回解码错误。
func DecodeFields(p []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(p))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, xerrors.Decode(err, "not a JSON record")
	}
	if dec.More() {
		return nil, xerrors.Decode(nil, "trailing data after record")
	}
	if fields == nil {
		return nil, xerrors.Decode(nil, "record is null")
	}
	return fields, nil
}

// UnmarshalJSON 拆分已知字段，其余进入 Extra；数字保留原始字面量
func (r *Record) UnmarshalJSON(p []byte) error {
	fields, err := DecodeFields(p)
	if err != nil {
		return err
	}

	*r = Record{}
	if v, ok := fields[KeyMsg].(string); ok {
		r.Msg = v
		delete(fields, KeyMsg)
	}
	if v, ok := fields[KeyLevel].(string); ok {
		r.Level = v
		delete(fields, KeyLevel)
	}
	if v, ok := fields[KeyNamespace].(string); ok {
		r.Namespace = v
		delete(fields, KeyNamespace)
	}
	if v, ok := fields[KeyTags].(map[string]any); ok {
		r.Tags = make(map[string]string, len(v))
		for k, tv := range v {
			if s, isStr := tv.(string); isStr {
				r.Tags[k] = s
			} else {
				r.Tags[k] = fmt.Sprint(tv)
			}
		}
		delete(fields, KeyTags)
	}
	if v, ok := fields[KeyErr]; ok {
		r.Err = v
		delete(fields, KeyErr)
	}
	if len(fields) > 0 {
		r.Extra = fields
	}
	return nil
}

// encodableErr 未实现 json.Marshaler 的 error 以其消息输出
func encodableErr(v any) any {
	if _, ok := v.(json.Marshaler); ok {
		return v
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return v
}
