package store

import (
	"context"
	"strconv"

	"github.com/juju/errors"
	"github.com/warriorguo/jobflow/types"
	"github.com/warriorguo/jobflow/utils"
)

const (
	ExecutionNodePath   = "/execution_node/"
	StreamingResultPath = "/streaming_result/"
)

var (
	_ ExecutionStore = &kvExecutionStore{}
)

func executionNodePrefix(execID int) string {
	return ExecutionNodePath + strconv.Itoa(execID)
}

// NewExecutionStore keeps execution records as JSON documents in s.
func NewExecutionStore(s Store) ExecutionStore {
	return &kvExecutionStore{s: s}
}

type kvExecutionStore struct {
	s Store
}

func (k *kvExecutionStore) QueryExecutionNode(ctx context.Context, execID int, nodeName string) (*types.ExecutionNode, error) {
	b, err := k.s.Get(ctx, executionNodePrefix(execID), nodeName)
	if err != nil {
		return nil, errors.Annotatef(err, "query execution node %d/%s", execID, nodeName)
	}
	if b == nil {
		return nil, nil
	}
	node := &types.ExecutionNode{}
	if err := utils.Unserialize(b, node); err != nil {
		return nil, errors.Annotatef(err, "unserialize execution node %d/%s", execID, nodeName)
	}
	return node, nil
}

func (k *kvExecutionStore) UpdateExecutionNode(ctx context.Context, node *types.ExecutionNode) error {
	if node == nil {
		return errors.BadRequestf("nil execution node")
	}
	b, err := utils.Serialize(node)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(k.s.Set(ctx, executionNodePrefix(node.ExecID), node.Name, b))
}

func (k *kvExecutionStore) QueryStreamingResult(ctx context.Context, execID int) (*types.StreamingResult, error) {
	b, err := k.s.Get(ctx, StreamingResultPath, strconv.Itoa(execID))
	if err != nil {
		return nil, errors.Annotatef(err, "query streaming result %d", execID)
	}
	if b == nil {
		return nil, nil
	}
	result := &types.StreamingResult{}
	if err := utils.Unserialize(b, result); err != nil {
		return nil, errors.Annotatef(err, "unserialize streaming result %d", execID)
	}
	return result, nil
}

func (k *kvExecutionStore) UpdateStreamingResult(ctx context.Context, result *types.StreamingResult) error {
	if result == nil {
		return errors.BadRequestf("nil streaming result")
	}
	b, err := utils.Serialize(result)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(k.s.Set(ctx, StreamingResultPath, strconv.Itoa(result.ExecID), b))
}
