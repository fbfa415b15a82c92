package etcd

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"jobboard/internal/metrics"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// NodePrefix is the etcd prefix where serving replicas register themselves.
const NodePrefix = "/jobboard/nodes/"

// NodeRegistry registers this replica under a leased key and tracks the
// replicas registered by others.
type NodeRegistry struct {
	client  *clientv3.Client
	logger  *slog.Logger
	leaseID clientv3.LeaseID
	key     string

	mu    sync.RWMutex
	nodes map[string]string // node id -> listen address
}

// NewNodeRegistry creates a registry on client.
func NewNodeRegistry(client *clientv3.Client, logger *slog.Logger) *NodeRegistry {
	return &NodeRegistry{
		client: client,
		logger: logger.With("component", "node-registry"),
		nodes:  make(map[string]string),
	}
}

// Register puts nodeID under a lease with the given TTL in seconds and keeps
// the lease alive until ctx is done or Deregister is called.
func (r *NodeRegistry) Register(ctx context.Context, nodeID, addr string, ttl int64) error {
	r.key = NodePrefix + nodeID

	leaseResp, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return fmt.Errorf("failed to grant lease: %w", err)
	}
	r.leaseID = leaseResp.ID

	if _, err := r.client.Put(ctx, r.key, addr, clientv3.WithLease(r.leaseID)); err != nil {
		return fmt.Errorf("failed to put node registration key: %w", err)
	}

	keepAliveCh, err := r.client.KeepAlive(ctx, r.leaseID)
	if err != nil {
		return fmt.Errorf("failed to start keep-alive: %w", err)
	}
	go func() {
		for ka := range keepAliveCh {
			r.logger.Debug("lease keep-alive refreshed", "lease_id", ka.ID, "ttl", ka.TTL)
		}
		if ctx.Err() == nil {
			r.logger.Warn("keep-alive channel closed, node registration may have expired")
		}
	}()

	r.logger.Info("node registered", "key", r.key, "addr", addr)
	return nil
}

// Deregister revokes the lease, which deletes the registration key.
func (r *NodeRegistry) Deregister(ctx context.Context) error {
	if r.leaseID == clientv3.NoLease {
		return nil
	}
	r.logger.Info("deregistering node", "key", r.key)
	if _, err := r.client.Revoke(ctx, r.leaseID); err != nil {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}
	return nil
}

// Watch loads the registered nodes and follows registrations until ctx is
// done. It blocks.
func (r *NodeRegistry) Watch(ctx context.Context) {
	if err := r.loadInitial(ctx); err != nil {
		r.logger.Error("failed to load registered nodes", "error", err)
	}

	for resp := range r.client.Watch(ctx, NodePrefix, clientv3.WithPrefix()) {
		for _, ev := range resp.Events {
			id := strings.TrimPrefix(string(ev.Kv.Key), NodePrefix)
			r.mu.Lock()
			switch ev.Type {
			case clientv3.EventTypePut:
				if _, ok := r.nodes[id]; !ok {
					r.logger.Info("node joined", "node_id", id, "addr", string(ev.Kv.Value))
				}
				r.nodes[id] = string(ev.Kv.Value)
			case clientv3.EventTypeDelete:
				r.logger.Info("node left", "node_id", id)
				delete(r.nodes, id)
			}
			metrics.ClusterNodes.Set(float64(len(r.nodes)))
			r.mu.Unlock()
		}
	}
}

func (r *NodeRegistry) loadInitial(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := r.client.Get(ctx, NodePrefix, clientv3.WithPrefix())
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, kv := range resp.Kvs {
		r.nodes[strings.TrimPrefix(string(kv.Key), NodePrefix)] = string(kv.Value)
	}
	metrics.ClusterNodes.Set(float64(len(r.nodes)))
	return nil
}

// Nodes returns the IDs of the registered replicas in sorted order.
func (r *NodeRegistry) Nodes() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.nodes))
	for id := range r.nodes {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	slices.Sort(ids)
	return ids
}
