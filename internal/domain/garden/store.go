package garden

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

type overdueRow struct {
	GardenID     string  `gorm:"column:garden_id"`
	GardenName   string  `gorm:"column:garden_name"`
	OverdueCount int     `gorm:"column:overdue_count"`
	Tasks        *string `gorm:"column:tasks"`
}

// OverdueSummary runs the per-garden aggregate for userID. Gardens without
// overdue tasks are left out.
func (s *Store) OverdueSummary(ctx context.Context, userID string) ([]GardenOverdue, error) {
	var rows []overdueRow
	if err := s.db.WithContext(ctx).
		Raw("SELECT * FROM get_overdue_tasks_summary(?)", userID).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]GardenOverdue, 0, len(rows))
	for _, r := range rows {
		var raw []byte
		if r.Tasks != nil {
			raw = []byte(*r.Tasks)
		}
		tasks, err := DecodeTasks(raw)
		if err != nil {
			return nil, fmt.Errorf("garden %s: %w", r.GardenID, err)
		}
		count := r.OverdueCount
		if count == 0 {
			count = len(tasks)
		}
		if count == 0 {
			continue
		}
		out = append(out, GardenOverdue{
			GardenID:     r.GardenID,
			GardenName:   r.GardenName,
			OverdueCount: count,
			Tasks:        tasks,
		})
	}
	return out, nil
}
