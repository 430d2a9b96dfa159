package util

import (
	"strconv"
)

// ParseLimit 解析分页数量，非法值回退到默认值并限制上限
func ParseLimit(s string) int {
	limit, err := strconv.Atoi(s)
	if err != nil || limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
