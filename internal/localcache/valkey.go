// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package localcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// keyPrefix is the Valkey key prefix for browser namespaces.
	keyPrefix = "local:"

	// maxUpdateAttempts bounds the optimistic WATCH/MULTI loop in Update.
	maxUpdateAttempts = 8
)

// ConnectValkey creates a Valkey client and verifies the connection with a ping.
func ConnectValkey(host, port, password string) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%s", host, port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping: %w", err)
	}

	slog.Info("valkey connected", "addr", addr)
	return client, nil
}

// Valkey is a Store kept in Valkey under "local:<namespace>:<key>". Every
// write and read pushes the key's expiry out to ttl, so a namespace whose
// browser stopped coming back disappears with its browser id. A zero ttl
// keeps keys forever.
type Valkey struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewValkey binds a namespace to a Valkey client.
func NewValkey(client *redis.Client, namespace string, ttl time.Duration) *Valkey {
	return &Valkey{client: client, prefix: keyPrefix + namespace + ":", ttl: ttl}
}

// ValkeyPool hands out Valkey namespaces over one shared client.
type ValkeyPool struct {
	client *redis.Client
	ttl    time.Duration
}

// NewValkeyPool wraps client. Namespace keys live ttl past their last use.
func NewValkeyPool(client *redis.Client, ttl time.Duration) *ValkeyPool {
	return &ValkeyPool{client: client, ttl: ttl}
}

// Namespace returns the store for ns.
func (p *ValkeyPool) Namespace(ns string) Store {
	return NewValkey(p.client, ns, p.ttl)
}

func (v *Valkey) Get(ctx context.Context, key string) ([]byte, error) {
	var cmd *redis.StringCmd
	if v.ttl > 0 {
		cmd = v.client.GetEx(ctx, v.prefix+key, v.ttl)
	} else {
		cmd = v.client.Get(ctx, v.prefix+key)
	}
	val, err := cmd.Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("valkey get %s: %w", key, err)
	}
	return val, nil
}

func (v *Valkey) Set(ctx context.Context, key string, value []byte) error {
	if err := v.client.Set(ctx, v.prefix+key, value, v.ttl).Err(); err != nil {
		return fmt.Errorf("valkey set %s: %w", key, err)
	}
	return nil
}

func (v *Valkey) Remove(ctx context.Context, key string) error {
	if err := v.client.Del(ctx, v.prefix+key).Err(); err != nil {
		return fmt.Errorf("valkey del %s: %w", key, err)
	}
	return nil
}

// Update runs fn inside WATCH/MULTI and retries when another writer
// touched the key first.
func (v *Valkey) Update(ctx context.Context, key string, fn func([]byte) ([]byte, error)) error {
	full := v.prefix + key
	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, full).Bytes()
		if err == redis.Nil {
			cur = nil
		} else if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, full)
			} else {
				pipe.Set(ctx, full, next, v.ttl)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := v.client.Watch(ctx, txf, full)
		if errors.Is(err, redis.TxFailedErr) {
			slog.Debug("local cache update raced, retrying", "key", key, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return fmt.Errorf("valkey update %s: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("valkey update %s: %w", key, ErrConflict)
}

// Clear removes the namespace by scanning for its prefix.
func (v *Valkey) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := v.client.Scan(ctx, cursor, v.prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("valkey scan: %w", err)
		}
		if len(keys) > 0 {
			if err := v.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("valkey bulk delete: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
