/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/dynbias/internal/config"
	"github.com/friendsincode/dynbias/internal/events"
)

// Bus is a broker that holds transport resources.
type Bus interface {
	events.Broker
	Close() error
}

type memoryBus struct {
	*events.Bus
}

func (memoryBus) Close() error { return nil }

// New builds the bus selected by cfg.EventBus.
func New(cfg *config.Config, logger zerolog.Logger) (Bus, error) {
	nodeID := cfg.InstanceID
	if nodeID == "" {
		nodeID = NodeID()
	}

	switch cfg.EventBus {
	case config.EventBusMemory, "":
		return memoryBus{events.NewBus()}, nil
	case config.EventBusRedis:
		rc := DefaultRedisConfig()
		rc.Addr = cfg.RedisAddr
		rc.Password = cfg.RedisPassword
		rc.DB = cfg.RedisDB
		return NewRedisBus(rc, nodeID, logger)
	case config.EventBusNATS:
		nc := DefaultNATSConfig()
		if cfg.NATSURL != "" {
			nc.URL = cfg.NATSURL
		}
		nc.Timeout = 2 * time.Second
		return NewNATSBus(nc, nodeID, logger)
	}
	return nil, fmt.Errorf("unknown event bus backend: %s", cfg.EventBus)
}
