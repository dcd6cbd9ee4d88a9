package jobmanager

import (
	"fmt"

	"github.com/sysupdate-systems/updated/internal/updated/domain"
	pkgerrors "github.com/sysupdate-systems/updated/pkg/errors"
)

// completeOutcome turns a successfully-exited job's parsed stdout document
// into the Outcome delivered over Done(). Each job type has its own idea
// of what a well-formed document looks like; a document that doesn't
// match becomes a WorkerProtocolError rather than being passed through
// uninterpreted, so callers never need to re-validate it.
func completeOutcome(job *domain.Job, doc map[string]interface{}) domain.Outcome {
	switch job.Type {
	case domain.TypeList:
		if _, ok := doc["all"].([]interface{}); !ok {
			return domain.Outcome{Err: &pkgerrors.WorkerProtocolError{Operation: "list", Detail: "missing or non-array \"all\" key"}}
		}
		return domain.Outcome{Doc: doc}

	case domain.TypeDescribe:
		return domain.Outcome{Doc: doc}

	case domain.TypeCheckNew:
		if v, ok := doc["available"]; ok && v != nil {
			if _, isString := v.(string); !isString {
				return domain.Outcome{Err: &pkgerrors.WorkerProtocolError{Operation: "check-new", Detail: "\"available\" key is not a string"}}
			}
		}
		return domain.Outcome{Doc: doc}

	case domain.TypeVacuum:
		if _, ok := doc["removed"].(float64); !ok {
			return domain.Outcome{Err: &pkgerrors.WorkerProtocolError{Operation: "vacuum", Detail: "missing or non-numeric \"removed\" key"}}
		}
		return domain.Outcome{Doc: doc}

	case domain.TypeUpdate:
		if !job.WasReady() {
			return domain.Outcome{Err: &pkgerrors.NoUpdateCandidateError{}}
		}
		return domain.Outcome{Doc: doc}

	default:
		return domain.Outcome{Err: fmt.Errorf("jobmanager: unhandled job type %q", job.Type)}
	}
}

// vacuumRemoved extracts the count of bytes/versions removed from a
// vacuum job's completed outcome.
func vacuumRemoved(doc map[string]interface{}) uint64 {
	v, ok := doc["removed"]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return uint64(n)
	default:
		return 0
	}
}

// checkNewAvailable extracts the available version string reported by a
// check-new job, or "" if none was offered.
func checkNewAvailable(doc map[string]interface{}) string {
	v, _ := doc["available"].(string)
	return v
}

// describeJSON re-serializes a describe job's parsed document back into
// the single JSON string the RMI surface returns, matching the reference
// worker's own "describe returns one JSON blob" contract.
func describeJSON(doc map[string]interface{}) (string, error) {
	return marshalCompact(doc)
}

// listVersions extracts the version list reported by a list job.
func listVersions(doc map[string]interface{}) []string {
	raw, ok := doc["all"].([]interface{})
	if !ok {
		return nil
	}
	versions := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			versions = append(versions, s)
		}
	}
	return versions
}

// ListVersions exports listVersions for callers outside jobmanager.
func ListVersions(doc map[string]interface{}) []string {
	return listVersions(doc)
}

// DescribeJSON exports describeJSON for callers outside jobmanager.
func DescribeJSON(doc map[string]interface{}) (string, error) {
	return describeJSON(doc)
}

// CheckNewAvailable exports checkNewAvailable for callers outside jobmanager.
func CheckNewAvailable(doc map[string]interface{}) string {
	return checkNewAvailable(doc)
}

// VacuumRemoved exports vacuumRemoved for callers outside jobmanager.
func VacuumRemoved(doc map[string]interface{}) uint64 {
	return vacuumRemoved(doc)
}
