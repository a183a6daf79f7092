// activation-service/internal/domain/code.go
package domain

import (
	"fmt"
	"math/rand"
	"strings"
)

// Alphabet 是激活码的字符集：大写字母加数字，去掉容易混淆的 I, O, 0, 1。
// 批量生成和回调签发使用同一个字符集。
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const groupLength = 4

// Normalize 规整用户输入的激活码：去首尾空白并统一大写。
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Generator 生成形如 PREFIX-YEAR-AAAA-BBBB 的激活码。
type Generator struct {
	prefix string
	year   string
}

// NewGenerator 创建生成器。prefix、year 为空时使用默认值。
func NewGenerator(prefix, year string) *Generator {
	if prefix == "" {
		prefix = "HORSE"
	}
	if year == "" {
		year = "2026"
	}
	return &Generator{prefix: prefix, year: year}
}

// Generate 生成一个激活码。不保证全局唯一，唯一性由调用方校验。
func (g *Generator) Generate() string {
	return fmt.Sprintf("%s-%s-%s-%s", g.prefix, g.year, randomGroup(), randomGroup())
}

// Batch 生成 n 个互不重复的激活码（仅保证本批次内唯一）。
func (g *Generator) Batch(n int) []string {
	seen := make(map[string]struct{}, n)
	codes := make([]string, 0, n)
	for len(codes) < n {
		code := g.Generate()
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

func randomGroup() string {
	var b strings.Builder
	for i := 0; i < groupLength; i++ {
		b.WriteByte(Alphabet[rand.Intn(len(Alphabet))])
	}
	return b.String()
}
