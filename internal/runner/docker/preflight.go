package docker

import (
	"context"
	"fmt"
	"time"

	"github.com/moby/moby/client"
)

// Preflight pings the Docker daemon using the moby client SDK before the
// engine starts scheduling jobs, turning a misconfigured daemon into one
// clear error up front instead of N per-job failures. Job
// execution itself never uses this client; it always shells out to the
// resolved docker binary per spec.md §4.7.1.
func Preflight(ctx context.Context) error {
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		return fmt.Errorf("docker: construct daemon client: %w", err)
	}
	defer cli.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(pingCtx); err != nil {
		return fmt.Errorf("docker: daemon unreachable: %w", err)
	}
	return nil
}
