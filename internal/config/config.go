package config

import "time"

type Config struct {
	Service  *ServiceConfig
	Redis    *RedisConfig
	Postgres *PostgresConfig
	Worker   *WorkerConfig
	Pairing  *PairingConfig
	Logger   *LoggerConfig
	Tracer   *TracerConfig
}

type ServiceConfig struct {
	Name string
	Env  string
	Addr string
}

type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	PingTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

type WorkerConfig struct {
	EventGroup  string
	EventStream string
}

type PairingConfig struct {
	// HeartbeatInterval is how often a connected frame refreshes its presence
	// entry; PresenceTTL is the inactivity threshold after which it drops out
	// of the online set.
	HeartbeatInterval time.Duration
	PresenceTTL       time.Duration
}

type LoggerConfig struct {
	Level  string
	Format string
}

type TracerConfig struct {
	Address string
}
