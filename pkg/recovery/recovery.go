// Package recovery is the swappable autosave port for in-progress answers.
// The live apply flow writes through it on every answer change and reads
// from it on session start; it is not part of the form schema and is never
// confused with persisted submission data.
package recovery

import (
	"context"
	"sync"

	"github.com/applykit/formflow/pkg/model"
)

// Store is the recovery port. Implementations are expected to be cheap and
// lossy-tolerant; a failed save must never block the applicant.
type Store interface {
	Load(ctx context.Context, formID string) (model.AnswerMap, error)
	Save(ctx context.Context, formID string, answers model.AnswerMap) error
	Clear(ctx context.Context, formID string) error
}

// Memory is an in-process Store, the default for previews and tests.
type Memory struct {
	mu     sync.RWMutex
	byForm map[string]model.AnswerMap
}

// NewMemory constructs an empty in-memory recovery store.
func NewMemory() *Memory {
	return &Memory{byForm: make(map[string]model.AnswerMap)}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Load(ctx context.Context, formID string) (model.AnswerMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byForm[formID].Clone(), nil
}

func (m *Memory) Save(ctx context.Context, formID string, answers model.AnswerMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byForm[formID] = answers.Clone()
	return nil
}

func (m *Memory) Clear(ctx context.Context, formID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byForm, formID)
	return nil
}
