//go:build integration

// Package testhelpers starts the backing services integration tests run against.
//
// Tests using it need a reachable Docker daemon and are compiled only with
// the integration build tag:
//
//	go test -tags integration ./...
package testhelpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage = "postgres:16-alpine"
	redisImage    = "redis:7-alpine"
)

func start(t *testing.T, req testcontainers.ContainerRequest) (testcontainers.Container, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping container-based test in short mode")
	}
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start %s: %v", req.Image, err)
	}
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate %s: %v", req.Image, err)
		}
	})

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get host of %s: %v", req.Image, err)
	}
	port, err := c.MappedPort(ctx, nat.Port(req.ExposedPorts[0]))
	if err != nil {
		t.Fatalf("Failed to get mapped port of %s: %v", req.Image, err)
	}
	return c, fmt.Sprintf("%s:%s", host, port.Port())
}

// StartPostgres runs a throwaway Postgres and returns its DSN
func StartPostgres(t *testing.T) string {
	t.Helper()
	_, addr := start(t, testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "chapterhub",
			"POSTGRES_PASSWORD": "chapterhub",
			"POSTGRES_DB":       "chapterhub",
		},
		// the server restarts once after initdb
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	})
	return fmt.Sprintf("postgres://chapterhub:chapterhub@%s/chapterhub?sslmode=disable", addr)
}

// StartRedis runs a throwaway Redis and returns its address
func StartRedis(t *testing.T) string {
	t.Helper()
	_, addr := start(t, testcontainers.ContainerRequest{
		Image:        redisImage,
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	})
	return addr
}
