package metrics

// Label 指标标签，用于为指标添加维度信息。
//
// 标签值应保持低基数：outcome、kind 这类枚举值合适，命名空间或事件 ID 不合适。
type Label struct {
	Key   string
	Value string
}

// L 便捷构造函数，创建一个 Label
//
//	counter.Inc(ctx, metrics.L("outcome", "forwarded"))
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}
