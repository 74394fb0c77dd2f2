package config

import "time"

type UpstreamConfig struct {
	BaseUrl        string
	RefreshTimeout time.Duration
}

type MongodbConfig struct {
	Uri               string
	Username          string
	Password          string
	Database          string
	SessionCollection string
}

type SessionConfig struct {
	SealKey     []byte
	RememberTtl time.Duration
}
