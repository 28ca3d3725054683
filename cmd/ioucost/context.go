package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/swdee/go-ioumatch/internal/logging"
	"github.com/swdee/go-ioumatch/internal/scene"
)

type commandContext struct {
	scenePath string
	logLevel  string
	logFormat string

	logger *slog.Logger
}

func (c *commandContext) ensureLogger(w io.Writer) error {
	if c.logger != nil {
		return nil
	}
	logger, err := logging.New(logging.Options{
		Level:  c.logLevel,
		Format: c.logFormat,
		Output: w,
	})
	if err != nil {
		return err
	}
	c.logger = logger
	return nil
}

func (c *commandContext) log() *slog.Logger {
	if c.logger == nil {
		return logging.Nop()
	}
	return c.logger
}

func (c *commandContext) loadScene() (*scene.Scene, error) {
	path := strings.TrimSpace(c.scenePath)
	if path == "" {
		return nil, errors.New("--scene is required (see 'ioucost sample' for the file format)")
	}
	s, err := scene.Load(path)
	if err != nil {
		return nil, err
	}
	c.log().Debug("scene loaded",
		"path", path,
		"tracks", len(s.Tracks),
		"detections", len(s.Detections),
	)
	return s, nil
}

func validateFormat(format string) error {
	switch format {
	case "table", "json":
		return nil
	default:
		return fmt.Errorf("unsupported --format %q (expected table or json)", format)
	}
}
