// Package render invokes the external slide renderer.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"deckforge/internal/command"
	"deckforge/internal/logging"
	"deckforge/internal/services"
)

// Renderer produces the PNG for one unit at outputPath.
type Renderer interface {
	Render(ctx context.Context, unitID, outputPath string) error
}

// RemotionRenderer renders still frames with the Remotion CLI.
type RemotionRenderer struct {
	Binary     string
	Entry      string
	ProjectDir string
	Scale      int
	Timeout    time.Duration
	Exec       command.Executor
	Logger     *slog.Logger
}

// Args returns the renderer arguments for one unit.
func (r *RemotionRenderer) Args(unitID, outputPath string) []string {
	scale := r.Scale
	if scale < 1 {
		scale = 1
	}
	return []string{"remotion", "still", r.Entry, unitID, outputPath, "--scale", strconv.Itoa(scale), "--quiet"}
}

// Render runs the renderer and verifies the output file exists afterwards.
func (r *RemotionRenderer) Render(ctx context.Context, unitID, outputPath string) error {
	if strings.TrimSpace(unitID) == "" {
		return services.Wrap(services.ErrValidation, "render", "render unit", "unit id required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, logging.NewComponentLogger(r.Logger, "render"))
	cmd := command.Command{Binary: r.Binary, Args: r.Args(unitID, outputPath), Dir: r.ProjectDir}
	logger.Debug("renderer command", logging.String("command", cmd.String()))

	exec := r.Exec
	if exec == nil {
		exec = command.OSExecutor{}
	}
	err := exec.Run(ctx, cmd, func(line string) {
		if line = strings.TrimSpace(line); line != "" {
			logger.Debug("renderer output", logging.String("line", line))
		}
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "render", unitID, "renderer failed", err)
	}
	if _, err := os.Stat(outputPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "render", unitID, "renderer produced no output", err)
	}
	return nil
}
