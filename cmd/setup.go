package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/gerak/internal/shared"
	"github.com/urfave/cli/v3"
)

// checker is implemented by analyzers that can verify their credentials without sending an image.
type checker interface {
	Check(ctx context.Context) error
}

// Setup writes the embedded example config to the --config path.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)

	r.writePlain("✓ Configuration written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. export API_KEY=<your Gemini API key>\n")
	r.writePlain("2. Set capture.device (or capture.source = \"dir\") in %s\n", path)
	r.writePlain("3. Run 'gerak check --camera' to verify the setup\n")
	return nil
}

// Check verifies that the model is reachable with the configured key and, with --camera,
// that a frame can be captured.
func (r *Runner) Check(ctx context.Context, cmd *cli.Command) error {
	analyzer, err := r.newAnalyzer()
	if err != nil {
		return err
	}

	if c, ok := analyzer.(checker); ok {
		if err := c.Check(ctx); err != nil {
			return fmt.Errorf("%s check failed: %w", analyzer.Name(), err)
		}
		r.writePlain("✓ %s reachable\n", analyzer.Name())
	} else {
		r.writePlain("- %s has no remote check\n", analyzer.Name())
	}

	if !cmd.Bool("camera") {
		return nil
	}

	source, err := r.newSource()
	if err != nil {
		return err
	}

	stream, err := source.Open(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	frame, err := stream.Frame()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCameraUnavailable, err)
	}
	r.writePlain("✓ Camera %s: %dx%d frame\n", source.Name(), frame.Width, frame.Height)
	return nil
}
