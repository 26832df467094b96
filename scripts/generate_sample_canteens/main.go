package main

import (
	"compress/gzip"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// generateSampleCanteens creates sample canteen directory files for local
// runs. Set CANTEEN_FILES=data/canteens/canteens.gz,data/canteens/hostels.gz
// to use them.
func main() {
	dataDir := "data/canteens"

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	directories := map[string][]string{
		"canteens.gz": {
			"# id,display name",
			"north,North Block Canteen",
			"south,South Block Food Court",
		},
		"hostels.gz": {
			"hostel-a,Hostel A Mess",
			"hostel-b,Hostel B Night Canteen",
		},
	}

	for filename, lines := range directories {
		filePath := filepath.Join(dataDir, filename)

		if err := createDirectoryFile(filePath, lines); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d lines\n", filePath, len(lines))
	}

	fmt.Println("\nSample canteen files created successfully!")
	fmt.Println("Canteen ids: north, south, hostel-a, hostel-b")
}

func createDirectoryFile(filePath string, lines []string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	for _, line := range lines {
		if _, err := fmt.Fprintf(gzipWriter, "%s\n", line); err != nil {
			return fmt.Errorf("failed to write line: %w", err)
		}
	}

	return nil
}
