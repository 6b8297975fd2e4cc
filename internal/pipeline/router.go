package pipeline

import "github.com/studykit/ingest-worker/internal/domain"

// Router is a pure mapping from queue names to pipeline variants.
type Router struct {
	pipelines map[string]Pipeline
}

// NewRouter builds the standard four-queue routing table from one set of
// dependencies.
func NewRouter(deps Deps) *Router {
	return &Router{
		pipelines: map[string]Pipeline{
			domain.QueuePDF:     NewPDF(deps),
			domain.QueueText:    NewText(deps),
			domain.QueueVideo:   NewVideo(deps),
			domain.QueueWebsite: NewWebsite(deps),
		},
	}
}

// For returns the pipeline responsible for the given queue name. The second
// return reports whether the queue is known; tasks from unknown queues are
// dropped by the dispatcher.
func (r *Router) For(queueName string) (Pipeline, bool) {
	p, ok := r.pipelines[queueName]
	return p, ok
}
