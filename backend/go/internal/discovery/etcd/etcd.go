package etcd

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"DocQA/backend/go/internal/config"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// KeyPrefix 是所有服务注册键的根路径。
const KeyPrefix = "/docqa/services"

// ServiceDiscovery 用 etcd 租约注册和发现服务实例。
type ServiceDiscovery struct {
	cli *clientv3.Client // etcd client
}

// NewServiceDiscovery creates a new ServiceDiscovery.
func NewServiceDiscovery(cfg config.EtcdConfig) (*ServiceDiscovery, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接到 etcd: %w", err)
	}
	return &ServiceDiscovery{cli: cli}, nil
}

// ServiceKey 返回一个实例的注册键。
func ServiceKey(serviceName, addr string) string {
	return path.Join(KeyPrefix, serviceName, addr)
}

// Register 以 ttl 秒的租约注册实例并保持续约，返回的函数用于注销。
func (s *ServiceDiscovery) Register(ctx context.Context, serviceName, addr string, ttl int64) (func(), error) {
	leaseResp, err := s.cli.Grant(ctx, ttl)
	if err != nil {
		return nil, fmt.Errorf("申请租约失败: %w", err)
	}

	key := ServiceKey(serviceName, addr)
	if _, err = s.cli.Put(ctx, key, addr, clientv3.WithLease(leaseResp.ID)); err != nil {
		return nil, fmt.Errorf("注册服务失败: %w", err)
	}

	keepCtx, cancel := context.WithCancel(context.Background())
	keepAliveCh, err := s.cli.KeepAlive(keepCtx, leaseResp.ID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("租约续约失败: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		// 消费续约响应，通道关闭说明租约已失效或被撤销
		for range keepAliveCh {
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			revokeCtx, revokeCancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer revokeCancel()
			// 租约到期后 etcd 也会自动删除，这里主动撤销以便立即下线
			_, _ = s.cli.Revoke(revokeCtx, leaseResp.ID)
		})
	}, nil
}

// Discover 返回某个服务当前注册的所有地址。
func (s *ServiceDiscovery) Discover(ctx context.Context, serviceName string) ([]string, error) {
	resp, err := s.cli.Get(ctx, path.Join(KeyPrefix, serviceName)+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	var addrs []string
	for _, ev := range resp.Kvs {
		addrs = append(addrs, string(ev.Value))
	}
	return addrs, nil
}

// Close closes the etcd client.
func (s *ServiceDiscovery) Close() error {
	return s.cli.Close()
}
