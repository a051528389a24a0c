package nsfilter

import (
	"regexp"
	"strings"
)

// Matcher 判断命名空间是否命中已编译的模式集合。
//
// *regexp.Regexp 满足该接口。
type Matcher interface {
	MatchString(s string) bool
}

// Compiler 将模式集合编译为 Matcher，可通过 Registry.SetCompiler 替换。
type Compiler func(patterns []string) Matcher

// matchAll 空集合对应的匹配器
var matchAll = regexp.MustCompile(`.*`)

// Compile 是默认的模式编译器。
//
// 每个模式 "domain:rest" 会额外泛化出 "domain:*"，因此启用某个子命名空间
// 等于启用了同一 domain 下的所有兄弟命名空间。"*" 匹配任意后缀，其余字符按字面匹配。
// 匹配采用包含语义（未锚定），空集合匹配一切。
//
//	m := nsfilter.Compile([]string{"app:db"})
//	m.MatchString("app:http") // true
func Compile(patterns []string) Matcher {
	if len(patterns) == 0 {
		return matchAll
	}

	generalized := make([]string, 0, len(patterns))
	for _, p := range patterns {
		generalized = append(generalized, generalize(p))
	}

	all := dedupe(append(dedupe(patterns), dedupe(generalized)...))
	alternatives := make([]string, 0, len(all))
	for _, p := range all {
		alternatives = append(alternatives, translate(p))
	}

	return regexp.MustCompile(strings.Join(alternatives, "|"))
}

// generalize 将第一个冒号之后的部分替换为通配符
func generalize(pattern string) string {
	if i := strings.IndexByte(pattern, ':'); i >= 0 {
		return pattern[:i] + ":*"
	}
	return pattern
}

// translate 转义正则元字符，"*" 转为 ".*"
func translate(pattern string) string {
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return strings.Join(parts, ".*")
}

// dedupe 去重并保留首次出现的顺序
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
