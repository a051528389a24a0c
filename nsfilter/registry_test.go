package nsfilter

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/stufflog/xerrors"
)

func TestRegistryEmptyEnablesAll(t *testing.T) {
	r := New()
	assert.False(t, r.Filtering())
	assert.True(t, r.IsEnabledFor("any:thing"))
	assert.True(t, r.IsEnabledFor(""))
}

func TestRegistryEnable(t *testing.T) {
	r := New()
	r.Enable("a:b")

	assert.True(t, r.Filtering())
	assert.True(t, r.IsEnabledFor("a:b"))
	assert.True(t, r.IsEnabledFor("a:anything-else"))
	assert.False(t, r.IsEnabledFor("c:d"))
	// 空命名空间总是启用
	assert.True(t, r.IsEnabledFor(""))
}

func TestRegistryEnableIgnoresBlankAndDuplicates(t *testing.T) {
	r := New()
	r.Enable("", "  ", "a:b", "a:b", "c:d")
	assert.Equal(t, []string{"a:b", "c:d"}, r.Patterns())
}

func TestRegistryDisableRoundTrip(t *testing.T) {
	r := New()
	r.Enable("app:db")
	r.Enable("queue:jobs")
	require.False(t, r.IsEnabledFor("mail:smtp"))

	r.Disable("queue:jobs")
	assert.Equal(t, []string{"app:db"}, r.Patterns())
	assert.False(t, r.IsEnabledFor("queue:jobs"))
	assert.True(t, r.IsEnabledFor("app:http"))

	r.Disable("app:db")
	assert.Empty(t, r.Patterns())
	assert.True(t, r.IsEnabledFor("queue:jobs"))
}

func TestRegistryDisableKeepsGeneralizedSiblings(t *testing.T) {
	r := New()
	r.Enable("app:db", "app:http")
	r.Disable("app:db")

	// app:http 仍然泛化出 app:*
	assert.True(t, r.IsEnabledFor("app:db"))
}

func TestRegistryReset(t *testing.T) {
	r := New()
	r.Enable("x:y")
	require.False(t, r.IsEnabledFor("z:w"))

	r.Reset()
	assert.False(t, r.Filtering())
	assert.True(t, r.IsEnabledFor("z:w"))
}

func TestRegistryEnableFromString(t *testing.T) {
	t.Run("空字符串返回配置错误", func(t *testing.T) {
		err := New().EnableFromString("")
		require.Error(t, err)
		assert.True(t, xerrors.IsConfig(err))
	})

	t.Run("逗号分隔的多个模式", func(t *testing.T) {
		r := New()
		require.NoError(t, r.EnableFromString("app:foo,db:bar"))
		assert.Equal(t, []string{"app:foo", "db:bar"}, r.Patterns())
		assert.True(t, r.IsEnabledFor("app:x"))
		assert.True(t, r.IsEnabledFor("db:y"))
		assert.False(t, r.IsEnabledFor("mq:z"))
	})

	t.Run("不合法的片段被忽略", func(t *testing.T) {
		r := New()
		require.NoError(t, r.EnableFromString("justaword,App:Web,-:x"))
		assert.Equal(t, []string{"App:Web"}, r.Patterns())
	})

	t.Run("没有合法片段时保持不过滤", func(t *testing.T) {
		r := New()
		require.NoError(t, r.EnableFromString("nothing-here"))
		assert.False(t, r.Filtering())
	})
}

func TestRegistryCompiler(t *testing.T) {
	r := New()

	err := r.SetCompiler(nil)
	require.Error(t, err)
	assert.True(t, xerrors.IsConfig(err))

	var seen []string
	require.NoError(t, r.SetCompiler(func(patterns []string) Matcher {
		seen = patterns
		return exact(patterns)
	}))
	r.Enable("app:db")

	assert.Equal(t, []string{"app:db"}, seen)
	assert.True(t, r.IsEnabledFor("app:db"))
	assert.False(t, r.IsEnabledFor("app:http"), "自定义编译器不做泛化")

	c, err := r.Compiler()
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestRegistryDecisionCacheInvalidation(t *testing.T) {
	r := New(WithDecisionCache(16))
	r.Enable("app:db")
	require.False(t, r.IsEnabledFor("queue:jobs"))

	// 变更后缓存的判定必须失效
	r.Enable("queue:jobs")
	assert.True(t, r.IsEnabledFor("queue:jobs"))

	r.Disable("queue:jobs")
	assert.False(t, r.IsEnabledFor("queue:jobs"))
}

func TestRegistryWithoutCache(t *testing.T) {
	r := New(WithDecisionCache(0))
	r.Enable("app:db")
	assert.True(t, r.IsEnabledFor("app:x"))
	assert.False(t, r.IsEnabledFor("b:x"))
}

func TestRegistryConcurrentUse(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Enable("app:db")
				r.Disable("app:db")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.IsEnabledFor("app:http")
			}
		}()
	}
	wg.Wait()
	assert.Empty(t, r.Patterns())
}

func TestDefaultIsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}

// exact 只做字面匹配的测试用编译器
type exact []string

func (e exact) MatchString(s string) bool {
	for _, p := range e {
		if p == s {
			return true
		}
	}
	return false
}
