package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/kr/pretty"
)

const (
	defaultRefreshTimeout = 10 * time.Second
	defaultRememberTtl    = 720 * time.Hour
)

type Config struct {
	ServerPort string
	Upstream   UpstreamConfig
	Mongodb    MongodbConfig
	Session    SessionConfig
}

func ReadConfig() (*Config, error) {
	serverPort := os.Getenv(ServerPort)
	if serverPort == "" {
		serverPort = "8080"
		fmt.Println("server port environment variable is empty its declared 8080 by default")
	}

	upstreamConfig, err := ReadUpstreamConfig()
	if err != nil {
		return nil, err
	}

	mongodbConfig, err := ReadMongoDbConfig()
	if err != nil {
		return nil, err
	}

	sessionConfig, err := ReadSessionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort: serverPort,
		Upstream:   upstreamConfig,
		Mongodb:    mongodbConfig,
		Session:    sessionConfig,
	}, nil
}

func (c *Config) Print() {
	_, _ = pretty.Println(c)
}

func ReadUpstreamConfig() (UpstreamConfig, error) {
	baseUrl := os.Getenv(UpstreamBaseUrl)
	if baseUrl == "" {
		return UpstreamConfig{}, fmt.Errorf(EnvironmentVariableNotDefined, UpstreamBaseUrl)
	}

	refreshTimeout := defaultRefreshTimeout
	rawRefreshTimeout := os.Getenv(UpstreamRefreshTimeout)
	if rawRefreshTimeout != "" {
		parsedRefreshTimeout, err := time.ParseDuration(rawRefreshTimeout)
		if err != nil {
			return UpstreamConfig{}, fmt.Errorf("%s variable is not a valid duration: %w", UpstreamRefreshTimeout, err)
		}
		refreshTimeout = parsedRefreshTimeout
	}

	return UpstreamConfig{
		BaseUrl:        baseUrl,
		RefreshTimeout: refreshTimeout,
	}, nil
}

func ReadMongoDbConfig() (MongodbConfig, error) {
	mongodbUri := os.Getenv(MongodbUri)
	if mongodbUri == "" {
		return MongodbConfig{}, fmt.Errorf(EnvironmentVariableNotDefined, MongodbUri)
	}

	mongodbUsername := os.Getenv(MongodbUsername)
	if mongodbUsername == "" {
		return MongodbConfig{}, fmt.Errorf(EnvironmentVariableNotDefined, MongodbUsername)
	}

	mongodbPassword := os.Getenv(MongodbPassword)
	if mongodbPassword == "" {
		return MongodbConfig{}, fmt.Errorf(EnvironmentVariableNotDefined, MongodbPassword)
	}

	mongodbDatabase := os.Getenv(MongodbDatabase)
	if mongodbDatabase == "" {
		return MongodbConfig{}, fmt.Errorf(EnvironmentVariableNotDefined, MongodbDatabase)
	}

	mongodbSessionCollection := os.Getenv(MongodbSessionCollection)
	if mongodbSessionCollection == "" {
		return MongodbConfig{}, fmt.Errorf(EnvironmentVariableNotDefined, MongodbSessionCollection)
	}

	return MongodbConfig{
		Uri:               mongodbUri,
		Username:          mongodbUsername,
		Password:          mongodbPassword,
		Database:          mongodbDatabase,
		SessionCollection: mongodbSessionCollection,
	}, nil
}

func ReadSessionConfig() (SessionConfig, error) {
	rawSealKey := os.Getenv(SessionSealKey)
	if rawSealKey == "" {
		return SessionConfig{}, fmt.Errorf(EnvironmentVariableNotDefined, SessionSealKey)
	}

	sealKey, err := hex.DecodeString(rawSealKey)
	if err != nil {
		return SessionConfig{}, fmt.Errorf("%s variable is not valid hex: %w", SessionSealKey, err)
	}

	if len(sealKey) != 32 {
		return SessionConfig{}, fmt.Errorf("%s variable must be 32 bytes of hex, got %d bytes", SessionSealKey, len(sealKey))
	}

	rememberTtl := defaultRememberTtl
	rawRememberTtl := os.Getenv(SessionRememberTtl)
	if rawRememberTtl != "" {
		parsedRememberTtl, err := time.ParseDuration(rawRememberTtl)
		if err != nil {
			return SessionConfig{}, fmt.Errorf("%s variable is not a valid duration: %w", SessionRememberTtl, err)
		}
		rememberTtl = parsedRememberTtl
	}

	return SessionConfig{
		SealKey:     sealKey,
		RememberTtl: rememberTtl,
	}, nil
}
