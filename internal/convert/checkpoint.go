package convert

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// checkpoint is the worker's persisted accumulation state. It is written
// alongside the session record after every page so that a paused or
// crashed run can resume from current_page without reprocessing earlier
// pages.
type checkpoint struct {
	Strategy   string       `json:"strategy"`
	Geometry   [][]string   `json:"geometry,omitempty"`
	Structured [][][]string `json:"structured,omitempty"`
	Text       [][][]string `json:"text,omitempty"`
}

func checkpointPath(workDir, id string) string {
	return filepath.Join(workDir, filepath.Base(id)+".checkpoint.json")
}

func loadCheckpoint(workDir, id string) (*checkpoint, error) {
	data, err := os.ReadFile(checkpointPath(workDir, id))
	if os.IsNotExist(err) {
		return &checkpoint{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	var cp checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return &cp, nil
}

func saveCheckpoint(workDir, id string, cp *checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	path := checkpointPath(workDir, id)
	tmp, err := os.CreateTemp(workDir, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

func removeCheckpoint(workDir, id string) {
	os.Remove(checkpointPath(workDir, id))
}
