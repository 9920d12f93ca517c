// Package utils 提供通用工具：分布式 ID 生成与重试。
package utils

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// SnowflakeID 雪花算法 ID 生成器，单调递增且全局唯一。
type SnowflakeID struct {
	node *snowflake.Node
}

// NewSnowflakeID 创建指定节点号的生成器，节点号范围 [0, 1023]。
func NewSnowflakeID(nodeID int64) (*SnowflakeID, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node %d: %w", nodeID, err)
	}
	return &SnowflakeID{node: node}, nil
}

// Generate 生成一个新的 ID。
func (s *SnowflakeID) Generate() int64 {
	return s.node.Generate().Int64()
}

// Retry 以固定间隔重试 fn，直到成功或用尽次数。
func Retry(attempts int, backoff time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(backoff)
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}
