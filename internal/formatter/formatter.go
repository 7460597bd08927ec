// package formatter renders release listings as plain text, CSV, Markdown or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/desertthunder/relwatch/internal/models"
	"github.com/desertthunder/relwatch/internal/shared"
)

// Format names an output format accepted by --format.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Formats lists every supported output format.
var Formats = []Format{FormatText, FormatCSV, FormatMarkdown, FormatJSON}

// ParseFormat validates a format name. "md" and "txt" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: format %q (want text, csv, markdown or json)", shared.ErrInvalidFlag, s)
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatMarkdown:
		return "md"
	case FormatJSON:
		return "json"
	default:
		return "txt"
	}
}

// ReleaseExport is a titled list of releases.
type ReleaseExport struct {
	Title    string
	Releases []models.ReleaseListing
}

// ExportToCSV converts a ReleaseExport to CSV format with columns: MBID, Artist, Title, Type, Date, Starred
func ExportToCSV(export *ReleaseExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"MBID", "Artist", "Title", "Type", "Date", "Starred"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, rel := range export.Releases {
		record := []string{
			rel.MBID,
			rel.ArtistName,
			rel.Name,
			string(rel.Type),
			rel.Date.String(),
			strconv.FormatBool(rel.Starred),
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

// ExportToMarkdown converts a ReleaseExport to a numbered Markdown list linking each release group
func ExportToMarkdown(export *ReleaseExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Title)
	fmt.Fprintf(&buf, "**Releases**: %d\n\n", len(export.Releases))

	for i, rel := range export.Releases {
		star := ""
		if rel.Starred {
			star = " ★"
		}
		fmt.Fprintf(&buf, "%d. **%s** - [%s](https://musicbrainz.org/release-group/%s) (%s, %s)%s\n",
			i+1, rel.ArtistName, rel.Name, rel.MBID, rel.Type.Label(), rel.Date, star)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a ReleaseExport to plain text format
func ExportToText(export *ReleaseExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", export.Title)
	fmt.Fprintf(&buf, "Releases: %d\n\n", len(export.Releases))

	for _, rel := range export.Releases {
		star := ""
		if rel.Starred {
			star = " *"
		}
		fmt.Fprintf(&buf, "%-10s  %s - %s (%s)%s\n", rel.Date, rel.ArtistName, rel.Name, rel.Type.Label(), star)
	}

	return buf.Bytes(), nil
}

type releaseRecord struct {
	MBID       string `json:"mbid"`
	Title      string `json:"title"`
	Type       string `json:"type"`
	Date       int    `json:"date"`
	DateStr    string `json:"date_str"`
	Released   string `json:"released"`
	ArtistMBID string `json:"artist_mbid"`
	Artist     string `json:"artist"`
	Starred    bool   `json:"starred"`
}

// ExportToJSON converts a ReleaseExport to indented JSON
func ExportToJSON(export *ReleaseExport) ([]byte, error) {
	records := make([]releaseRecord, 0, len(export.Releases))
	for _, rel := range export.Releases {
		records = append(records, releaseRecord{
			MBID:       rel.MBID,
			Title:      rel.Name,
			Type:       string(rel.Type),
			Date:       int(rel.Date),
			DateStr:    rel.Date.String(),
			Released:   rel.Date.ISO8601(),
			ArtistMBID: rel.ArtistMBID,
			Artist:     rel.ArtistName,
			Starred:    rel.Starred,
		})
	}

	data, err := json.MarshalIndent(struct {
		Title    string          `json:"title"`
		Releases []releaseRecord `json:"releases"`
	}{export.Title, records}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal releases: %w", err)
	}
	return append(data, '\n'), nil
}

// Render dispatches to the exporter for format
func Render(export *ReleaseExport, format Format) ([]byte, error) {
	switch format {
	case FormatText:
		return ExportToText(export)
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export)
	case FormatJSON:
		return ExportToJSON(export)
	default:
		return nil, fmt.Errorf("%w: format %q", shared.ErrInvalidFlag, format)
	}
}

// Write renders the export to w
func Write(w io.Writer, export *ReleaseExport, format Format) error {
	data, err := Render(export, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteExport renders the export to a file and returns its path.
//
// Defaults to releases.{ext} in the working directory.
func WriteExport(export *ReleaseExport, format Format, path string) (string, error) {
	if path == "" {
		path = "releases." + format.Extension()
	}

	data, err := Render(export, format)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}
