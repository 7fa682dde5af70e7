package encoder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"deckforge/internal/command"
	"deckforge/internal/logging"
	"deckforge/internal/services"
)

// Converter converts a PNG into a JPEG at a given quality.
type Converter struct {
	Binary string
	// MaxDimension caps the long side in pixels; zero keeps the source size.
	MaxDimension int
	Exec         command.Executor
	Logger       *slog.Logger
}

// Args returns the converter arguments for one image.
func (c Converter) Args(src, dst string, quality int) []string {
	args := make([]string, 0, 10)
	if c.MaxDimension > 0 {
		args = append(args, "-Z", strconv.Itoa(c.MaxDimension))
	}
	return append(args,
		"-s", "format", "jpeg",
		"-s", "formatOptions", strconv.Itoa(quality),
		src, "--out", dst)
}

// Convert writes dst as a JPEG of src at quality.
func (c Converter) Convert(ctx context.Context, src, dst string, quality int) error {
	cmd := command.Command{Binary: c.Binary, Args: c.Args(src, dst, quality)}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(c.Logger, "encoder"))
	logger.Debug("converting slide", logging.String("command", cmd.String()))
	if err := executor(c.Exec).Run(ctx, cmd, discardLine); err != nil {
		return services.Wrap(services.ErrExternalTool, "pdf", "convert", src, err)
	}
	return nil
}

// Assembler concatenates JPEGs into a PDF.
type Assembler struct {
	Binary string
	Exec   command.Executor
	Logger *slog.Logger
}

// Args returns the assembler arguments.
func (a Assembler) Args(images []string, output string) []string {
	args := make([]string, 0, len(images)+2)
	args = append(args, images...)
	return append(args, "-o", output)
}

// Assemble writes output from images in order and returns its size in bytes.
func (a Assembler) Assemble(ctx context.Context, images []string, output string) (int64, error) {
	if len(images) == 0 {
		return 0, services.Wrap(services.ErrValidation, "pdf", "assemble", "no images to assemble", nil)
	}
	cmd := command.Command{Binary: a.Binary, Args: a.Args(images, output)}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(a.Logger, "encoder"))
	logger.Debug("assembling pdf", logging.Int("pages", len(images)), logging.String("output", output))
	if err := executor(a.Exec).Run(ctx, cmd, discardLine); err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "pdf", "assemble", output, err)
	}
	info, err := os.Stat(output)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "pdf", "assemble", fmt.Sprintf("%s produced no output", a.Binary), err)
	}
	return info.Size(), nil
}

func executor(exec command.Executor) command.Executor {
	if exec == nil {
		return command.OSExecutor{}
	}
	return exec
}

func discardLine(string) {}
