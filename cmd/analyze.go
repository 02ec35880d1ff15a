package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/gerak/internal/capture"
	"github.com/desertthunder/gerak/internal/formatter"
	"github.com/desertthunder/gerak/internal/models"
	"github.com/desertthunder/gerak/internal/overlay"
	"github.com/urfave/cli/v3"
)

// Analyze runs a single analysis request for one image and reports the result.
//
// The image is re-encoded as JPEG the same way camera frames are.
func (r *Runner) Analyze(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	catalog, err := r.catalog()
	if err != nil {
		return err
	}

	movement, err := models.FindMovement(catalog, cmd.String("movement"))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cmd.String("image"))
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	img, err := capture.DecodeImage(data)
	if err != nil {
		return err
	}

	encoded, err := capture.EncodeJPEG(img, r.config.Capture.JPEGQuality)
	if err != nil {
		return err
	}

	analyzer, err := r.newAnalyzer()
	if err != nil {
		return err
	}

	r.logger.Info("analyzing image", "movement", movement.ID, "analyzer", analyzer.Name(), "bytes", len(encoded))

	start := time.Now()
	result, err := analyzer.Analyze(ctx, encoded, capture.MIMEType, movement.Name)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	report := &formatter.Report{
		Movement: movement,
		Analyzer: analyzer.Name(),
		Elapsed:  time.Since(start),
		Result:   result,
	}

	var overlayPNG []byte
	if cmd.String("overlay") != "" || cmd.String("export") != "" {
		layer := overlay.RenderImage(r.config.Overlay.Width, r.config.Overlay.Height, result)
		if overlayPNG, err = overlay.EncodePNG(overlay.Composite(img, layer)); err != nil {
			return err
		}
	}

	if path := cmd.String("overlay"); path != "" {
		if err := os.WriteFile(path, overlayPNG, 0644); err != nil {
			return fmt.Errorf("failed to write overlay: %w", err)
		}
		r.logger.Info("overlay written", "path", path)
	}

	if dir := cmd.String("export"); dir != "" {
		export, err := formatter.WriteMarkdownExport(report, dir, overlayPNG, cmd.Bool("reference"))
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d files to %s\n", len(export.Files), export.Directory)
		return nil
	}

	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteReport(report, format, path)
		if err != nil {
			return err
		}
		r.writePlain("✓ Report written to %s\n", written)
		return nil
	}

	out, err := formatter.Format(report, format)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
