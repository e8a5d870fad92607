package garden

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type OverdueTask struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DueDate   string `json:"dueDate"`
	PlantName string `json:"plantName,omitempty"`
}

// GardenOverdue summarizes the overdue care tasks of one garden.
type GardenOverdue struct {
	GardenID     string        `json:"gardenId"`
	GardenName   string        `json:"gardenName"`
	OverdueCount int           `json:"overdueCount"`
	Tasks        []OverdueTask `json:"tasks"`
}

// DecodeTasks parses a task list that may arrive either as a JSON array or
// as a JSON string holding that array. Null and empty input yield an empty
// list.
func DecodeTasks(raw []byte) ([]OverdueTask, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []OverdueTask{}, nil
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("decode task list string: %w", err)
		}
		raw = bytes.TrimSpace([]byte(inner))
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			return []OverdueTask{}, nil
		}
	}

	var tasks []OverdueTask
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil, fmt.Errorf("decode task list: %w", err)
	}
	if tasks == nil {
		tasks = []OverdueTask{}
	}
	return tasks, nil
}
