// package formatter renders analysis results as reports (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/gerak/internal/models"
	"github.com/desertthunder/gerak/internal/shared"
)

// Supported report formats.
const (
	FormatJSON     = "json"
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)

// Formats lists the accepted --format values.
var Formats = []string{FormatJSON, FormatText, FormatMarkdown, FormatCSV}

// Report is one analyzed frame with its context.
type Report struct {
	Movement models.Movement          `json:"movement"`
	Analyzer string                   `json:"analyzer"`
	Elapsed  time.Duration            `json:"elapsed_ns"`
	Result   *models.AnalysisResponse `json:"result"`
}

type keypointRow struct {
	part     models.BodyPart
	kp       models.Keypoint
	status   string
	detected bool
}

func rows(result *models.AnalysisResponse) []keypointRow {
	out := make([]keypointRow, 0, models.BodyPartCount)
	for _, part := range models.BodyParts() {
		kp := result.Pose.Get(part)
		status := "-"
		if s, ok := result.Feedback.Status(part); ok {
			status = string(s)
		}
		out = append(out, keypointRow{part: part, kp: kp, status: status, detected: kp.Detected()})
	}
	return out
}

func counts(result *models.AnalysisResponse) (detected, correct, incorrect int) {
	for _, r := range rows(result) {
		if r.detected {
			detected++
		}
		switch r.status {
		case string(models.StatusCorrect):
			correct++
		case string(models.StatusIncorrect):
			incorrect++
		}
	}
	return
}

// ParseFormat normalizes a --format value and its aliases. Unknown names return [shared.ErrInvalidFlag].
func ParseFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatText, "txt":
		return FormatText, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: format must be one of %s, got %q", shared.ErrInvalidFlag, strings.Join(Formats, ", "), format)
	}
}

// Format renders report in the named format.
func Format(report *Report, format string) ([]byte, error) {
	if report == nil || report.Result == nil {
		return nil, fmt.Errorf("%w: empty report", shared.ErrInvalidInput)
	}

	name, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	switch name {
	case FormatText:
		return ExportToText(report)
	case FormatMarkdown:
		return ExportToMarkdown(report, "")
	case FormatCSV:
		return ExportToCSV(report)
	default:
		return ToJSON(report, true)
	}
}

// ToJSON marshals the report.
func ToJSON(report *Report, pretty bool) ([]byte, error) {
	return shared.MarshalJSON(report, pretty)
}

// ExportToCSV writes one row per keypoint with columns: part, x, y, detected, status
func ExportToCSV(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"part", "x", "y", "detected", "status"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range rows(report.Result) {
		record := []string{
			r.part.String(),
			strconv.FormatFloat(r.kp.X, 'f', 4, 64),
			strconv.FormatFloat(r.kp.Y, 'f', 4, 64),
			strconv.FormatBool(r.detected),
			r.status,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders the feedback and a keypoint table, with an optional overlay image link
func ExportToMarkdown(report *Report, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer
	detected, correct, incorrect := counts(report.Result)

	fmt.Fprintf(&buf, "# %s\n\n", report.Movement.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Overlay](%s)\n\n", imageFilename)
	}

	if report.Movement.Description != "" {
		fmt.Fprintf(&buf, "**Gerakan**: %s\n\n", report.Movement.Description)
	}

	fmt.Fprintf(&buf, "> %s\n\n", report.Result.Text)
	fmt.Fprintf(&buf, "**Keypoints**: %d/%d detected, %d correct, %d incorrect\n", detected, models.BodyPartCount, correct, incorrect)
	if report.Analyzer != "" {
		fmt.Fprintf(&buf, "**Analyzer**: %s (%s)\n", report.Analyzer, report.Elapsed.Round(time.Millisecond))
	}

	buf.WriteString("\n## Keypoints\n\n")
	buf.WriteString("| Part | X | Y | Status |\n")
	buf.WriteString("|------|---|---|--------|\n")
	for _, r := range rows(report.Result) {
		if !r.detected {
			fmt.Fprintf(&buf, "| %s | - | - | %s |\n", r.part, r.status)
			continue
		}
		fmt.Fprintf(&buf, "| %s | %.3f | %.3f | %s |\n", r.part, r.kp.X, r.kp.Y, r.status)
	}

	return buf.Bytes(), nil
}

// ExportToText renders the feedback and the assessed keypoints
func ExportToText(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	detected, correct, incorrect := counts(report.Result)

	fmt.Fprintf(&buf, "Movement: %s\n", report.Movement.Name)
	fmt.Fprintf(&buf, "Feedback: %s\n", report.Result.Text)
	fmt.Fprintf(&buf, "Keypoints: %d detected, %d correct, %d incorrect\n\n", detected, correct, incorrect)

	for _, r := range rows(report.Result) {
		if r.status == "-" {
			continue
		}
		fmt.Fprintf(&buf, "%-15s %s\n", r.part, r.status)
	}

	return buf.Bytes(), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Reference string
}

// WriteMarkdownExport writes {dir}/README.md, plus overlay.png when overlayPNG is set and
// reference{ext} when the movement's demonstration image can be downloaded.
//
// Directory name defaults to the movement ID.
func WriteMarkdownExport(report *Report, outputDir string, overlayPNG []byte, withReference bool) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = report.Movement.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	var overlayName string
	if len(overlayPNG) > 0 {
		overlayName = "overlay.png"
		path := filepath.Join(outputDir, overlayName)
		if err := os.WriteFile(path, overlayPNG, 0644); err != nil {
			return nil, fmt.Errorf("failed to write overlay: %w", err)
		}
		result.Files = append(result.Files, path)
	}

	if withReference && report.Movement.ImageURL != "" {
		data, err := DownloadImage(report.Movement.ImageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download reference image: %v\n", err)
		} else {
			ext := filepath.Ext(report.Movement.ImageURL)
			if ext == "" || len(ext) > 5 {
				ext = ".gif"
			}
			path := filepath.Join(outputDir, "reference"+ext)
			if err := os.WriteFile(path, data, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save reference image: %v\n", err)
			} else {
				result.Reference = path
				result.Files = append(result.Files, path)
			}
		}
	}

	mdData, err := ExportToMarkdown(report, overlayName)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteReport renders report in format and writes it to path.
//
// Defaults to {movement.ID}_analysis.{ext} as the filename.
func WriteReport(report *Report, format, path string) (string, error) {
	data, err := Format(report, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = fmt.Sprintf("%s_analysis.%s", report.Movement.ID, extension(format))
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

func extension(format string) string {
	name, _ := ParseFormat(format)
	switch name {
	case FormatText:
		return "txt"
	case FormatMarkdown:
		return "md"
	case FormatCSV:
		return "csv"
	default:
		return "json"
	}
}
