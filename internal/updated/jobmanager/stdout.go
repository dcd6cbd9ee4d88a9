package jobmanager

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sysupdate-systems/updated/internal/updated/domain"
)

// readJobDocument seeks a job's anonymous stdout file back to the start
// and parses whatever the worker wrote as its final JSON document. An
// empty capture is not an error here: an empty map is returned, and
// completeOutcome then decides whether that is acceptable for the job's
// type (list and vacuum jobs fail for lack of their required key).
func readJobDocument(job *domain.Job) (map[string]interface{}, error) {
	if job.StdoutFile == nil {
		return map[string]interface{}{}, nil
	}
	if _, err := job.StdoutFile.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding worker stdout: %w", err)
	}
	raw, err := io.ReadAll(job.StdoutFile)
	if err != nil {
		return nil, fmt.Errorf("reading worker stdout: %w", err)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return map[string]interface{}{}, nil
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return doc, nil
}
