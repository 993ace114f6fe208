package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/orchestra-dev/orchestra/internal/config"
	"github.com/orchestra-dev/orchestra/pkg/api"
	"github.com/orchestra-dev/orchestra/pkg/util"
)

// RedisStore implements Storage against a single Redis database. Blueprint
// reads go through an in-process cache: blueprint records are immutable
// between publish and delete
type RedisStore struct {
	client     *redis.Client
	prefix     string
	blueprints *util.LRUCache[*api.Blueprint]
}

var _ Storage = (*RedisStore)(nil)

var ErrMarshalEntity = errors.New("failed to marshal entity")

// blueprintCacheSize bounds the plan cache; plans dominate the record size
const blueprintCacheSize = 128

// NewRedisStore creates a storage engine from the given store configuration
func NewRedisStore(cfg config.StoreConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisStoreWithClient(client, cfg.Prefix)
}

// NewRedisStoreWithClient wraps an existing client, sharing its connection
// pool with other collaborators
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client:     client,
		prefix:     prefix,
		blueprints: util.NewLRUCache[*api.Blueprint](blueprintCacheSize),
	}
}

// Close releases the underlying Redis connection pool
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(parts ...string) string {
	key := s.prefix
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

func (s *RedisStore) blueprintKey(id api.BlueprintID) string {
	return s.key("blueprint", string(id))
}

func (s *RedisStore) deploymentKey(id api.DeploymentID) string {
	return s.key("deployment", string(id))
}

func (s *RedisStore) nodeKey(d api.DeploymentID, n api.NodeID) string {
	return s.key("node", string(d), string(n))
}

func (s *RedisStore) instanceKey(id api.InstanceID) string {
	return s.key("instance", string(id))
}

func (s *RedisStore) executionKey(id api.ExecutionID) string {
	return s.key("execution", string(id))
}

// insert writes a JSON value under key only when the key is absent, then
// registers it in the given index sets
func (s *RedisStore) insert(
	ctx context.Context, key string, entity any,
	conflict func() error, indexes map[string]string,
) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMarshalEntity, err)
	}

	ok, err := s.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return conflict()
	}

	if len(indexes) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	for set, member := range indexes {
		pipe.SAdd(ctx, set, member)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) get(
	ctx context.Context, key string, entity any, missing func() error,
) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return missing()
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, entity)
}

// getMembers loads all JSON values registered in an index set. Members
// whose value has since been deleted are skipped
func getMembers[T any](
	s *RedisStore, ctx context.Context, set string, keyOf func(string) string,
) ([]*T, error) {
	members, err := s.client.SMembers(ctx, set).Result()
	if err != nil {
		return nil, err
	}

	res := make([]*T, 0, len(members))
	for _, member := range members {
		data, err := s.client.Get(ctx, keyOf(member)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entity := new(T)
		if err := json.Unmarshal(data, entity); err != nil {
			return nil, err
		}
		res = append(res, entity)
	}
	return res, nil
}

func (s *RedisStore) InsertBlueprint(
	ctx context.Context, b *api.Blueprint,
) error {
	return s.insert(ctx, s.blueprintKey(b.ID), b,
		func() error {
			return api.Conflict("blueprint %s already exists", b.ID)
		},
		map[string]string{
			s.key("blueprints"): string(b.ID),
		})
}

func (s *RedisStore) GetBlueprint(
	ctx context.Context, id api.BlueprintID,
) (*api.Blueprint, error) {
	return s.blueprints.Get(string(id), func() (*api.Blueprint, error) {
		var b api.Blueprint
		err := s.get(ctx, s.blueprintKey(id), &b, func() error {
			return api.NotFound("blueprint %s not found", id)
		})
		if err != nil {
			return nil, err
		}
		return &b, nil
	})
}

func (s *RedisStore) ListBlueprints(
	ctx context.Context,
) ([]*api.Blueprint, error) {
	return getMembers[api.Blueprint](s, ctx, s.key("blueprints"),
		func(id string) string {
			return s.blueprintKey(api.BlueprintID(id))
		})
}

func (s *RedisStore) DeleteBlueprint(
	ctx context.Context, id api.BlueprintID,
) error {
	s.blueprints.Remove(string(id))
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.blueprintKey(id))
	pipe.SRem(ctx, s.key("blueprints"), string(id))
	pipe.Del(ctx, s.key("blueprint", string(id), "deployments"))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) InsertDeployment(
	ctx context.Context, d *api.Deployment,
) error {
	return s.insert(ctx, s.deploymentKey(d.ID), d,
		func() error {
			return api.Conflict("deployment %s already exists", d.ID)
		},
		map[string]string{
			s.key("deployments"): string(d.ID),
			s.key("blueprint", string(d.BlueprintID), "deployments"): string(d.ID),
		})
}

func (s *RedisStore) GetDeployment(
	ctx context.Context, id api.DeploymentID,
) (*api.Deployment, error) {
	var d api.Deployment
	err := s.get(ctx, s.deploymentKey(id), &d, func() error {
		return api.NotFound("deployment %s not found", id)
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *RedisStore) ListDeployments(
	ctx context.Context,
) ([]*api.Deployment, error) {
	return getMembers[api.Deployment](s, ctx, s.key("deployments"),
		func(id string) string {
			return s.deploymentKey(api.DeploymentID(id))
		})
}

func (s *RedisStore) CountDeploymentsByBlueprint(
	ctx context.Context, id api.BlueprintID,
) (int, error) {
	count, err := s.client.SCard(
		ctx, s.key("blueprint", string(id), "deployments")).Result()
	return int(count), err
}

func (s *RedisStore) DeleteDeployment(
	ctx context.Context, id api.DeploymentID,
) error {
	d, err := s.GetDeployment(ctx, id)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.deploymentKey(id))
	pipe.SRem(ctx, s.key("deployments"), string(id))
	pipe.SRem(
		ctx, s.key("blueprint", string(d.BlueprintID), "deployments"),
		string(id))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) InsertNode(ctx context.Context, n *api.Node) error {
	return s.insert(ctx, s.nodeKey(n.DeploymentID, n.ID), n,
		func() error {
			return api.Conflict(
				"node %s already exists in deployment %s",
				n.ID, n.DeploymentID)
		},
		map[string]string{
			s.key("deployment", string(n.DeploymentID), "nodes"): string(n.ID),
		})
}

func (s *RedisStore) ListNodes(
	ctx context.Context, id api.DeploymentID,
) ([]*api.Node, error) {
	return getMembers[api.Node](
		s, ctx, s.key("deployment", string(id), "nodes"),
		func(nodeID string) string {
			return s.nodeKey(id, api.NodeID(nodeID))
		})
}

func (s *RedisStore) ListAllNodes(ctx context.Context) ([]*api.Node, error) {
	deployments, err := s.ListDeployments(ctx)
	if err != nil {
		return nil, err
	}
	var res []*api.Node
	for _, d := range deployments {
		nodes, err := s.ListNodes(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		res = append(res, nodes...)
	}
	return res, nil
}

func (s *RedisStore) DeleteNodes(
	ctx context.Context, id api.DeploymentID,
) error {
	set := s.key("deployment", string(id), "nodes")
	members, err := s.client.SMembers(ctx, set).Result()
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	for _, member := range members {
		pipe.Del(ctx, s.nodeKey(id, api.NodeID(member)))
	}
	pipe.Del(ctx, set)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) InsertNodeInstance(
	ctx context.Context, n *api.NodeInstance,
) error {
	return s.insert(ctx, s.instanceKey(n.ID), n,
		func() error {
			return api.Conflict("node instance %s already exists", n.ID)
		},
		map[string]string{
			s.key("instances"): string(n.ID),
			s.key("deployment", string(n.DeploymentID), "instances"): string(n.ID),
		})
}

func (s *RedisStore) GetNodeInstance(
	ctx context.Context, id api.InstanceID,
) (*api.NodeInstance, error) {
	var n api.NodeInstance
	err := s.get(ctx, s.instanceKey(id), &n, func() error {
		return api.NotFound("node instance %s not found", id)
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *RedisStore) ListNodeInstances(
	ctx context.Context, id api.DeploymentID,
) ([]*api.NodeInstance, error) {
	return getMembers[api.NodeInstance](
		s, ctx, s.key("deployment", string(id), "instances"),
		func(instID string) string {
			return s.instanceKey(api.InstanceID(instID))
		})
}

func (s *RedisStore) ListAllNodeInstances(
	ctx context.Context,
) ([]*api.NodeInstance, error) {
	return getMembers[api.NodeInstance](s, ctx, s.key("instances"),
		func(instID string) string {
			return s.instanceKey(api.InstanceID(instID))
		})
}

// UpdateNodeInstance applies runtime properties and state under optimistic
// locking. The submitted Version must equal the stored version; the write
// bumps it by one. A stale version fails with Conflict and leaves the
// stored instance unchanged
func (s *RedisStore) UpdateNodeInstance(
	ctx context.Context, n *api.NodeInstance,
) error {
	key := s.instanceKey(n.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return api.NotFound("node instance %s not found", n.ID)
		}
		if err != nil {
			return err
		}

		var stored api.NodeInstance
		if err := json.Unmarshal(data, &stored); err != nil {
			return err
		}
		if stored.Version != n.Version {
			return api.Conflict(
				"node instance %s version mismatch: expected %d, got %d",
				n.ID, stored.Version, n.Version)
		}

		if n.RuntimeProperties != nil {
			stored.RuntimeProperties = n.RuntimeProperties
		}
		if n.State != "" {
			stored.State = n.State
		}
		stored.Version++

		updated, err := json.Marshal(&stored)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMarshalEntity, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// Lost the race to a concurrent writer; the version the caller
		// read is stale either way
		return api.Conflict(
			"node instance %s was modified concurrently", n.ID)
	}
	return err
}

func (s *RedisStore) DeleteNodeInstances(
	ctx context.Context, id api.DeploymentID,
) error {
	set := s.key("deployment", string(id), "instances")
	members, err := s.client.SMembers(ctx, set).Result()
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	for _, member := range members {
		pipe.Del(ctx, s.instanceKey(api.InstanceID(member)))
		pipe.SRem(ctx, s.key("instances"), member)
	}
	pipe.Del(ctx, set)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) InsertExecution(
	ctx context.Context, e *api.Execution,
) error {
	return s.insert(ctx, s.executionKey(e.ID), e,
		func() error {
			return api.Conflict("execution %s already exists", e.ID)
		},
		map[string]string{
			s.key("deployment", string(e.DeploymentID), "executions"): string(e.ID),
		})
}

func (s *RedisStore) GetExecution(
	ctx context.Context, id api.ExecutionID,
) (*api.Execution, error) {
	var e api.Execution
	err := s.get(ctx, s.executionKey(id), &e, func() error {
		return api.NotFound("execution %s not found", id)
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *RedisStore) ListExecutions(
	ctx context.Context, id api.DeploymentID,
) ([]*api.Execution, error) {
	return getMembers[api.Execution](
		s, ctx, s.key("deployment", string(id), "executions"),
		func(execID string) string {
			return s.executionKey(api.ExecutionID(execID))
		})
}

// UpdateExecutionStatus atomically replaces the status and error text of an
// execution and returns the updated record
func (s *RedisStore) UpdateExecutionStatus(
	ctx context.Context, id api.ExecutionID,
	status api.ExecutionStatus, errText string,
) (*api.Execution, error) {
	key := s.executionKey(id)
	var updated api.Execution

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return api.NotFound("execution %s not found", id)
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &updated); err != nil {
			return err
		}

		updated.Status = status
		updated.Error = errText

		out, err := json.Marshal(&updated)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMarshalEntity, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return nil, api.Conflict("execution %s was modified concurrently", id)
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *RedisStore) GetProviderContext(
	ctx context.Context,
) (*api.ProviderContext, error) {
	var p api.ProviderContext
	err := s.get(ctx, s.key("provider-context"), &p, func() error {
		return api.NotFound("provider context not found")
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PutProviderContext creates the singleton provider context. A second call
// fails with Conflict for the lifetime of the installation
func (s *RedisStore) PutProviderContext(
	ctx context.Context, p *api.ProviderContext,
) error {
	return s.insert(ctx, s.key("provider-context"), p,
		func() error {
			return api.Conflict("provider context already set")
		}, nil)
}
