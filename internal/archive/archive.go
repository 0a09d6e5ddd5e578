// Package archive moves the artifacts of a finished run aside so the
// next run starts clean without destroying anything. The checkpoint
// file and the audio directory end up together under a timestamped
// folder and can be restored by moving them back.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArchiveRun moves the checkpoint file and the audio directory into a
// timestamped folder under <dir of checkpoint>/archive and returns the
// folder path. Artifacts that do not exist are skipped, but at least
// one of the two must be present.
func ArchiveRun(checkpointFile, audioDir string) (string, error) {
	hasCheckpoint := exists(checkpointFile)
	hasAudio := exists(audioDir)
	if !hasCheckpoint && !hasAudio {
		return "", fmt.Errorf("nothing to archive: neither %s nor %s exists", checkpointFile, audioDir)
	}

	parentDir := filepath.Dir(checkpointFile)
	archiveDir := filepath.Join(parentDir, "archive")

	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	archivePath := filepath.Join(archiveDir, fmt.Sprintf("run-%s", timestamp))

	// Check if archive already exists (unlikely but possible)
	if _, err := os.Stat(archivePath); err == nil {
		timestamp = time.Now().Format("20060102-150405.000000")
		archivePath = filepath.Join(archiveDir, fmt.Sprintf("run-%s", timestamp))
	}

	if err := os.MkdirAll(archivePath, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive folder: %w", err)
	}

	if hasCheckpoint {
		dest := filepath.Join(archivePath, filepath.Base(checkpointFile))
		if err := os.Rename(checkpointFile, dest); err != nil {
			return "", fmt.Errorf("failed to archive checkpoint file: %w", err)
		}
	}

	if hasAudio {
		dest := filepath.Join(archivePath, filepath.Base(audioDir))
		if err := os.Rename(audioDir, dest); err != nil {
			return "", fmt.Errorf("failed to archive audio directory: %w", err)
		}
	}

	return archivePath, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
