package inmemory

func (r *repo) Count(embedID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byEmbed[embedID])
}
