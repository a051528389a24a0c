// Package nsfilter 实现基于命名空间的日志开关。
//
// Registry 维护一组已启用的命名空间模式，并在每次变更后同步重新编译匹配器。
// 集合为空时不做过滤，所有命名空间都视为启用。
//
// 基本使用：
//
//	reg := nsfilter.New()
//	reg.Enable("app:db")
//	reg.IsEnabledFor("app:http")   // true，同一 domain 被泛化启用
//	reg.IsEnabledFor("queue:jobs") // false
//
// 从 DEBUG 风格的字符串批量启用：
//
//	_ = reg.EnableFromString("app:db,queue:*")
//
// 进程级单例通过 Default 获取，测试中应使用 New 创建独立实例。
package nsfilter

import (
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/maypok86/otter/v2"

	"github.com/ceyewan/stufflog/xerrors"
)

// DefaultDecisionCacheSize 默认的判定缓存容量
const DefaultDecisionCacheSize = 1024

// splitPattern 从启用字符串中提取 "domain:rest" 片段
var splitPattern = regexp.MustCompile(`(?i)[a-z0-9]+:[^,]+`)

// Option 配置 Registry
type Option func(*options)

type options struct {
	compiler  Compiler
	cacheSize int
}

// WithCompiler 替换默认的模式编译器
func WithCompiler(c Compiler) Option {
	return func(o *options) {
		o.compiler = c
	}
}

// WithDecisionCache 设置判定缓存容量，0 表示关闭缓存
func WithDecisionCache(size int) Option {
	return func(o *options) {
		o.cacheSize = size
	}
}

// Registry 命名空间注册表，可并发使用。
type Registry struct {
	mu        sync.RWMutex
	patterns  []string
	compiler  Compiler
	matcher   Matcher
	decisions *otter.Cache[string, bool]
}

// New 创建一个空的注册表（不过滤任何命名空间）
func New(opts ...Option) *Registry {
	o := &options{compiler: Compile, cacheSize: DefaultDecisionCacheSize}
	for _, opt := range opts {
		opt(o)
	}
	if o.compiler == nil {
		o.compiler = Compile
	}

	r := &Registry{compiler: o.compiler}
	if o.cacheSize > 0 {
		// 仅在容量非法时返回错误，这里容量已校验
		if c, err := otter.New(&otter.Options[string, bool]{MaximumSize: o.cacheSize}); err == nil {
			r.decisions = c
		}
	}
	r.recompile()
	return r
}

var defaultRegistry = sync.OnceValue(func() *Registry { return New() })

// Default 返回进程级共享的注册表
func Default() *Registry {
	return defaultRegistry()
}

// Enable 启用一个或多个命名空间模式，空字符串会被忽略
func (r *Registry) Enable(namespaces ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	for _, ns := range namespaces {
		ns = strings.TrimSpace(ns)
		if ns == "" || slices.Contains(r.patterns, ns) {
			continue
		}
		r.patterns = append(r.patterns, ns)
		changed = true
	}
	if changed {
		r.recompile()
	}
}

// EnableFromString 解析形如 "app:db,queue:*" 的字符串并启用其中每个模式。
//
// 不符合 "domain:rest" 形式的片段被忽略；空字符串返回配置错误。
func (r *Registry) EnableFromString(s string) error {
	if s == "" {
		return xerrors.Config("no pattern string provided")
	}
	r.Enable(splitPattern.FindAllString(s, -1)...)
	return nil
}

// Disable 移除命名空间模式。
//
// 只移除字面相同的条目，由其他条目泛化出来的匹配不受影响。
func (r *Registry) Disable(namespaces ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.patterns)
	r.patterns = slices.DeleteFunc(r.patterns, func(p string) bool {
		return slices.Contains(namespaces, p)
	})
	if len(r.patterns) != n {
		r.recompile()
	}
}

// Reset 清空所有模式，恢复为不过滤
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.patterns = nil
	r.recompile()
}

// IsEnabledFor 判断命名空间是否启用。
//
// 集合为空或 ns 为空时总是返回 true。
func (r *Registry) IsEnabledFor(ns string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.patterns) == 0 || ns == "" {
		return true
	}
	if r.decisions != nil {
		if ok, hit := r.decisions.GetIfPresent(ns); hit {
			return ok
		}
	}
	ok := r.matcher.MatchString(ns)
	if r.decisions != nil {
		r.decisions.Set(ns, ok)
	}
	return ok
}

// Filtering 报告当前是否启用了过滤（集合非空）
func (r *Registry) Filtering() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.patterns) > 0
}

// Patterns 按首次启用顺序返回当前模式的副本
func (r *Registry) Patterns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.patterns)
}

// SetCompiler 替换编译器并立即重新编译
func (r *Registry) SetCompiler(c Compiler) error {
	if c == nil {
		return xerrors.Config("no compiler provided")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.compiler = c
	r.recompile()
	return nil
}

// Compiler 返回当前编译器
func (r *Registry) Compiler() (Compiler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.compiler == nil {
		return nil, xerrors.Config("no compiler set")
	}
	return r.compiler, nil
}

// recompile 调用方需持有写锁
func (r *Registry) recompile() {
	r.matcher = r.compiler(slices.Clone(r.patterns))
	if r.decisions != nil {
		r.decisions.InvalidateAll()
	}
}
