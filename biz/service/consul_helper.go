package service

import (
	"fmt"
	"time"

	"github.com/hashicorp/consul/api"

	"profitshare-hertz/util"
)

// ConsulHelper 封装 Consul 注册与分布式锁
// 使用前请确保 Consul agent 已启动

type ConsulHelper struct {
	client *api.Client
}

// NewConsulHelper 创建 Consul 客户端
func NewConsulHelper(addr string) (*ConsulHelper, error) {
	cfg := api.DefaultConfig()
	cfg.Address = addr
	cli, err := api.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ConsulHelper{client: cli}, nil
}

// NewConsulHelperWithAddrs 支持多个 Consul 地址高可用
func NewConsulHelperWithAddrs(addrs []string) (*ConsulHelper, error) {
	var lastErr error
	for _, addr := range addrs {
		cfg := api.DefaultConfig()
		cfg.Address = addr
		cli, err := api.NewClient(cfg)
		if err == nil {
			// 尝试健康检查
			_, errPing := cli.Agent().Self()
			if errPing == nil {
				return &ConsulHelper{client: cli}, nil
			}
			lastErr = errPing
		} else {
			lastErr = err
		}
	}
	return nil, fmt.Errorf("all consul addresses failed: %v", lastErr)
}

// RegisterService 注册分账服务节点到 Consul
func (c *ConsulHelper) RegisterService(serviceName, nodeID string, port int) error {
	addr := util.GetLocalIP()
	reg := &api.AgentServiceRegistration{
		ID:      nodeID,
		Name:    serviceName,
		Address: addr,
		Port:    port,
		Check: &api.AgentServiceCheck{
			TCP:      fmt.Sprintf("%s:%d", addr, port),
			Interval: "10s",
			Timeout:  "2s",
		},
	}
	return c.client.Agent().ServiceRegister(reg)
}

// AcquireLock 获取分布式锁，未拿到返回 nil
func (c *ConsulHelper) AcquireLock(key string) (*api.Lock, error) {
	lock, err := c.client.LockOpts(&api.LockOptions{
		Key:          key,
		LockTryOnce:  true,
		LockWaitTime: 5 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	stopCh := make(chan struct{})
	leaderCh, err := lock.Lock(stopCh)
	if err != nil || leaderCh == nil {
		return nil, nil // 未获取到锁
	}
	return lock, nil
}

// Client 返回 consul client
func (c *ConsulHelper) Client() *api.Client {
	return c.client
}
