package live

import (
	"context"

	"github.com/itsatony/soundscape/hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

const defaultProbeLimit = 5

// probe reads a handful of classification documents once and logs what they
// look like. It never touches the monitor state.
func (m *Monitor) probe(ctx context.Context, q repository.Query) {
	collection := q.Collection
	docs, err := m.store.Get(ctx, repository.Query{Collection: collection, Limit: m.probeLimit})
	if err != nil {
		if ctx.Err() == nil {
			nuts.L.Errorf("[Live] Diagnostic read of %s failed: %v", collection, err)
		}
		return
	}

	nuts.L.Infof("[Live] Diagnostic read of %s returned %d documents", collection, len(docs))
	for _, doc := range docs {
		_, hasTime := doc.Data[q.OrderBy]
		nuts.L.Infof("[Live] %s label=%v %s=%t", doc.ID, doc.Data["label"], q.OrderBy, hasTime)
	}
}
