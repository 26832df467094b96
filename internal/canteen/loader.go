package canteen

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for gzipped directory files on local disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based directory loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "canteen-loader").Logger(),
	}
}

// Load reads a gzipped directory file from disk.
func (l *fileLoader) Load(ctx context.Context, filePath string) (*Directory, error) {
	l.logger.Info().Str("file", filePath).Msg("loading canteen directory")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open canteen directory")
		return nil, fmt.Errorf("failed to open canteen directory %s: %w", filePath, err)
	}
	defer file.Close()

	dir, err := parse(ctx, file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to read canteen directory")
		return nil, fmt.Errorf("failed to read canteen directory %s: %w", filePath, err)
	}

	l.logger.Info().
		Str("file", filePath).
		Int("canteens_loaded", dir.Size()).
		Msg("canteen directory loaded successfully")

	return dir, nil
}

// parse decompresses r and reads one canteen per line.
func parse(ctx context.Context, r io.Reader) (*Directory, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	dir := NewDirectory(64)

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineCount := 0
	for scanner.Scan() {
		lineCount++
		if lineCount%10_000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		id, name, _ := strings.Cut(line, ",")
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		dir.Add(id, strings.TrimSpace(name))
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return dir, nil
}
