package memory

import (
	"context"

	"go.uber.org/zap"

	"github.com/danja/semem/internal/model"
)

// Filter decides whether a pending Interaction should be processed by this
// processLazy call.
type Filter func(*model.Interaction) bool

// ProcessLazy converts pending Interactions matching filter into fully
// processed ones, taking at most opts.ProcessBatchSize of them per call. It is
// idempotent: an Interaction that processes successfully is removed from
// the pending set and will not be revisited by a later call.
func (m *Manager) ProcessLazy(ctx context.Context, sessionID string, filter Filter) (int, error) {
	if filter == nil {
		filter = func(*model.Interaction) bool { return true }
	}

	batch := m.takePendingBatch(filter)
	processed := 0
	for _, interaction := range batch {
		m.process(ctx, interaction)
		if interaction.PendingProcessing {
			// Still failing; leave it in the pending set for a future pass.
			m.pendingMu.Lock()
			m.pending[interaction.ID] = interaction
			m.pendingMu.Unlock()
			m.logger.Warn("memory: processLazy retry still pending", zap.String("id", interaction.ID))
			continue
		}
		m.persist(sessionID, interaction)
		processed++
	}
	return processed, nil
}

func (m *Manager) takePendingBatch(filter Filter) []*model.Interaction {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()

	batch := make([]*model.Interaction, 0, m.opts.ProcessBatchSize)
	for id, interaction := range m.pending {
		if !filter(interaction) {
			continue
		}
		batch = append(batch, interaction)
		delete(m.pending, id)
		if len(batch) >= m.opts.ProcessBatchSize {
			break
		}
	}
	return batch
}

// PendingCount returns the number of Interactions currently awaiting
// processing, for diagnostics and tests.
func (m *Manager) PendingCount() int {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	return len(m.pending)
}
