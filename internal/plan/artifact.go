package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ArtifactName is the file name a plan is persisted under in the run
// directory.
const ArtifactName = "generated_plan.json"

// Save writes the plan as a pretty-printed JSON artifact into dir,
// creating the directory if needed. Returns the artifact path.
func Save(p interface{}, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding plan: %w", err)
	}

	path := filepath.Join(dir, ArtifactName)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("writing plan artifact: %w", err)
	}
	return path, nil
}
