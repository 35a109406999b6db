package statement

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"posto/internal/core"
)

// FileWriter delivers statements as CSV files in a local directory. Repeat
// deliveries overwrite the same file with identical content.
type FileWriter struct {
	dir string
}

var _ Writer = (*FileWriter)(nil)

func NewFileWriter(dir string) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create statement directory: %w", err)
	}
	return &FileWriter{dir: dir}, nil
}

func (f *FileWriter) Write(ctx context.Context, s core.Settlement, bookings []core.Booking) error {
	doc, err := Render(s, bookings)
	if err != nil {
		return fmt.Errorf("render statement: %w", err)
	}

	path := filepath.Join(f.dir, Filename(s.Period))
	if err := os.WriteFile(path, doc, 0644); err != nil {
		return fmt.Errorf("write statement file: %w", err)
	}

	slog.InfoContext(ctx, "Statement written",
		"path", path,
		"period", s.Period.String(),
		"used_days", s.UsedDays)
	return nil
}
