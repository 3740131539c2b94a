package util

import (
	"strconv"
	"strings"
)

// ParseID 解析路径/查询参数中的正整数 id
func ParseID(raw string) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// Ptr 返回值的指针
func Ptr[T any](v T) *T {
	return &v
}

// ContainsFold 大小写不敏感的子串匹配
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
