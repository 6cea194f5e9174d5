// Package registry is a Redis-backed service registry. Instances live under
// a TTL key kept alive by a health-checked heartbeat, so a crashed or
// unhealthy instance disappears on its own.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/config"
)

const (
	instanceKeyPrefix = "registry:instance:"
	serviceKeyPrefix  = "registry:service:"
	healthTimeout     = 5 * time.Second
)

type Instance struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Address      string            `json:"address"`
	Port         int               `json:"port"`
	HealthPath   string            `json:"healthPath"`
	Tags         []string          `json:"tags,omitempty"`
	Meta         map[string]string `json:"meta,omitempty"`
	RegisteredAt time.Time         `json:"registeredAt"`
}

// HealthURL is where the heartbeat probes the instance.
func (i Instance) HealthURL() string {
	return "http://" + net.JoinHostPort(i.Address, strconv.Itoa(i.Port)) + i.HealthPath
}

// NewInstance describes this process with a fresh "<name>-<uuid>" id.
func NewInstance(name, address string, port int, version string) Instance {
	return Instance{
		ID:         name + "-" + uuid.NewString(),
		Name:       name,
		Address:    address,
		Port:       port,
		HealthPath: "/health",
		Tags:       []string{name, "microservice"},
		Meta:       map[string]string{"version": version},
	}
}

type Registry struct {
	rdb       redis.Cmdable
	ttl       time.Duration
	heartbeat time.Duration
	client    *http.Client
	lg        *zap.Logger
}

func New(rdb redis.Cmdable, cfg config.RedisConfig, lg *zap.Logger) *Registry {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 10 * time.Second
	}
	return &Registry{
		rdb:       rdb,
		ttl:       cfg.TTL,
		heartbeat: cfg.Heartbeat,
		client:    &http.Client{Timeout: healthTimeout},
		lg:        lg.Named("registry"),
	}
}

// Register stores inst with the registry TTL and indexes it under its
// service name.
func (r *Registry) Register(ctx context.Context, inst Instance) error {
	if inst.RegisteredAt.IsZero() {
		inst.RegisteredAt = time.Now().UTC()
	}
	body, err := json.Marshal(inst)
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, instanceKeyPrefix+inst.ID, body, r.ttl)
		p.SAdd(ctx, serviceKeyPrefix+inst.Name, inst.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("register %s: %w", inst.ID, err)
	}
	r.lg.Info("service_registered",
		zap.String("instance_id", inst.ID),
		zap.String("address", inst.Address),
		zap.Int("port", inst.Port),
	)
	return nil
}

// Heartbeat probes the instance's health endpoint and refreshes its TTL only
// when it answers 200.
func (r *Registry) Heartbeat(ctx context.Context, inst Instance) error {
	if err := r.probe(ctx, inst); err != nil {
		return err
	}
	ok, err := r.rdb.Expire(ctx, instanceKeyPrefix+inst.ID, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("refresh %s: %w", inst.ID, err)
	}
	if !ok {
		// Expired while unhealthy, or Redis lost it.
		return r.Register(ctx, inst)
	}
	return nil
}

func (r *Registry) probe(ctx context.Context, inst Instance) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, inst.HealthURL(), nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check %s: %w", inst.ID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check %s: status %d", inst.ID, resp.StatusCode)
	}
	return nil
}

// Run heartbeats inst until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, inst Instance) error {
	t := time.NewTicker(r.heartbeat)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := r.Heartbeat(ctx, inst); err != nil && ctx.Err() == nil {
				r.lg.Warn("heartbeat_failed", zap.String("instance_id", inst.ID), zap.Error(err))
				continue
			}
			r.lg.Debug("heartbeat_sent", zap.String("instance_id", inst.ID))
		}
	}
}

func (r *Registry) Deregister(ctx context.Context, inst Instance) error {
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, instanceKeyPrefix+inst.ID)
		p.SRem(ctx, serviceKeyPrefix+inst.Name, inst.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deregister %s: %w", inst.ID, err)
	}
	r.lg.Info("service_deregistered", zap.String("instance_id", inst.ID))
	return nil
}

// Lookup returns the live instances of service, dropping index entries whose
// instance key has expired.
func (r *Registry) Lookup(ctx context.Context, service string) ([]Instance, error) {
	ids, err := r.rdb.SMembers(ctx, serviceKeyPrefix+service).Result()
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", service, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = instanceKeyPrefix + id
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", service, err)
	}

	var (
		out   []Instance
		stale []any
	)
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var inst Instance
		if err := json.Unmarshal([]byte(s), &inst); err != nil {
			stale = append(stale, ids[i])
			continue
		}
		out = append(out, inst)
	}
	if len(stale) > 0 {
		if err := r.rdb.SRem(ctx, serviceKeyPrefix+service, stale...).Err(); err != nil && !errors.Is(err, redis.Nil) {
			r.lg.Warn("registry_prune_failed", zap.String("service", service), zap.Error(err))
		}
	}
	return out, nil
}

// AdvertiseAddress picks the address other services should use: the
// configured host, else the first non-loopback IPv4, else the hostname.
func AdvertiseAddress(configured string) string {
	if configured != "" {
		return configured
	}
	if addrs, err := net.InterfaceAddrs(); err == nil {
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "127.0.0.1"
}
