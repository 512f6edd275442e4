package runs

import "github.com/mmrzaf/fwgen/internal/domain"

// Repository stores the history of profiling and generation runs.
type Repository interface {
	Init() error
	Create(run *domain.Run) error
	Update(run *domain.Run) error
	Get(id string) (*domain.Run, error)
	List(limit int, status string) ([]*domain.Run, error)
	Close() error
}
