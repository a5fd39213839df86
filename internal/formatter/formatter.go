// package formatter renders library records for CLI output (aligned text
// tables, JSON, CSV export)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/n3ms/medialib/internal/models"
)

// MarshalJSON renders any record as indented JSON for --json output.
func MarshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

// FormatDuration renders seconds as H:MM:SS or M:SS.
func FormatDuration(seconds *int64) string {
	if seconds == nil {
		return "-"
	}

	s := *seconds
	h := s / 3600
	m := (s % 3600) / 60
	rest := s % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, rest)
	}
	return fmt.Sprintf("%d:%02d", m, rest)
}

// FormatTime renders a nullable timestamp as a date, "-" when absent.
func FormatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

// FormatSize renders a byte count with a binary unit suffix.
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// table writes rows through a tabwriter and returns the rendered text.
func table(headers []string, rows [][]string) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	w.Flush()
	return buf.String()
}

// SourcesTable renders sources with their sync state.
func SourcesTable(sources []models.Source) string {
	rows := make([][]string, 0, len(sources))
	for i := range sources {
		src := &sources[i]
		lastSynced := "never"
		if src.LastSyncedAt != nil {
			lastSynced = src.LastSyncedAt.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			src.ID,
			src.DisplayName(),
			string(src.Platform),
			string(src.Status),
			lastSynced,
		})
	}
	return table([]string{"ID", "NAME", "PLATFORM", "STATUS", "LAST SYNCED"}, rows)
}

// FeedItemsTable renders feed items with download and metadata state.
func FeedItemsTable(items []models.FeedItem) string {
	rows := make([][]string, 0, len(items))
	for i := range items {
		item := &items[i]
		metadata := "pending"
		if item.MetadataComplete {
			metadata = "complete"
		}
		rows = append(rows, []string{
			item.ID,
			truncate(item.Title, 48),
			FormatTime(item.PublishedAt),
			FormatDuration(item.Duration),
			string(item.DownloadStatus),
			metadata,
		})
	}
	return table([]string{"ID", "TITLE", "PUBLISHED", "DURATION", "STATUS", "METADATA"}, rows)
}

// CreatorsTable renders creators.
func CreatorsTable(creators []models.Creator) string {
	rows := make([][]string, 0, len(creators))
	for i := range creators {
		rows = append(rows, []string{creators[i].ID, creators[i].Name})
	}
	return table([]string{"ID", "NAME"}, rows)
}

// CredentialsTable renders credentials without exposing cookie contents.
func CredentialsTable(credentials []models.Credential) string {
	rows := make([][]string, 0, len(credentials))
	for i := range credentials {
		cred := &credentials[i]
		isDefault := ""
		if cred.IsDefault {
			isDefault = "*"
		}
		rows = append(rows, []string{
			cred.ID,
			cred.Label,
			string(cred.Platform),
			cred.CookiePath,
			isDefault,
		})
	}
	return table([]string{"ID", "LABEL", "PLATFORM", "COOKIE FILE", "DEFAULT"}, rows)
}

// WarehouseTable renders materialized library files.
func WarehouseTable(items []models.WarehouseItem) string {
	rows := make([][]string, 0, len(items))
	for i := range items {
		item := &items[i]
		provenance := "fetched"
		if item.IsManualImport {
			provenance = "imported"
		}
		rows = append(rows, []string{
			item.ID,
			truncate(item.Title, 48),
			FormatSize(item.FileSize),
			provenance,
			item.ImportedAt.Format("2006-01-02"),
		})
	}
	return table([]string{"ID", "TITLE", "SIZE", "ORIGIN", "IMPORTED"}, rows)
}

// ExportFeedCSV writes a source's feed items to a CSV file.
// Defaults to {sourceID}_feed.csv when path is empty.
func ExportFeedCSV(sourceID string, items []models.FeedItem, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_feed.csv", sourceID)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "External ID", "Title", "Published", "Duration", "Status"}
	if err := writer.Write(headers); err != nil {
		return "", fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i := range items {
		item := &items[i]
		record := []string{
			item.ID,
			item.ExternalID,
			item.Title,
			FormatTime(item.PublishedAt),
			FormatDuration(item.Duration),
			string(item.DownloadStatus),
		}
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("CSV writer error: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return path, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
