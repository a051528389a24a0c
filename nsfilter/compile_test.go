package nsfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		ns       string
		want     bool
	}{
		{"空集合匹配一切", nil, "anything:at-all", true},
		{"空集合匹配空串", []string{}, "", true},
		{"字面命中", []string{"app:db"}, "app:db", true},
		{"同 domain 被泛化", []string{"app:db"}, "app:http", true},
		{"不同 domain 不命中", []string{"app:db"}, "queue:jobs", false},
		{"通配符后缀", []string{"queue:*"}, "queue:jobs:retry", true},
		{"无冒号的模式不泛化", []string{"worker"}, "work", false},
		{"包含语义未锚定", []string{"db:x"}, "mydb:y", true},
		{"点号按字面匹配", []string{"a.b:c"}, "axb:c", false},
		{"括号不会破坏编译", []string{"svc(1):x"}, "svc(1):y", true},
		{"多模式取并集", []string{"app:db", "queue:*"}, "queue:mail", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compile(tt.patterns).MatchString(tt.ns))
		})
	}
}

func TestCompileAlternation(t *testing.T) {
	m := Compile([]string{"app:db", "app:http", "app:db"})
	re, ok := m.(interface{ String() string })
	if assert.True(t, ok, "默认编译器应返回正则") {
		// 原始模式在前，泛化模式去重后追加
		assert.Equal(t, `app:db|app:http|app:.*`, re.String())
	}
}

func TestGeneralize(t *testing.T) {
	assert.Equal(t, "app:*", generalize("app:db:pool"))
	assert.Equal(t, "plain", generalize("plain"))
	assert.Equal(t, "app:*", generalize("app:"))
}
