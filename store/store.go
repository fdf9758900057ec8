package store

import (
	"context"

	"github.com/warriorguo/jobflow/types"
)

type Store interface {
	Get(ctx context.Context, prefix, key string) ([]byte, error)
	Set(ctx context.Context, prefix, key string, value []byte) error
	/**
	 * Remove a prefix and key
	 * remove an unexists prefix + key would NOT return error
	 */
	Remove(ctx context.Context, prefix, key string) error

	List(ctx context.Context, prefix string, iterator func(key string) bool) error
}

/**
 * ExecutionStore keeps the execution records the job engine writes back.
 * Query methods return (nil, nil) when the record does not exist.
 * Updates must be idempotent: writing the same record twice is harmless.
 */
type ExecutionStore interface {
	QueryExecutionNode(ctx context.Context, execID int, nodeName string) (*types.ExecutionNode, error)
	UpdateExecutionNode(ctx context.Context, node *types.ExecutionNode) error

	QueryStreamingResult(ctx context.Context, execID int) (*types.StreamingResult, error)
	UpdateStreamingResult(ctx context.Context, result *types.StreamingResult) error
}
