package jobmanager

import "encoding/json"

func marshalCompact(doc map[string]interface{}) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
