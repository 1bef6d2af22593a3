package worker

// resolveOperations handles running the consensus rule on a schedule and
// on request.
func (w *Worker) resolveOperations() {
	w.evHandler("worker: resolveOperations: G started")
	defer w.evHandler("worker: resolveOperations: G completed")

	for {
		select {
		case <-w.resolveTicker.C:
			if !w.isShutdown() {
				w.runResolveOperation()
			}
		case <-w.resolve:
			if !w.isShutdown() {
				w.runResolveOperation()
			}
		case <-w.shut:
			w.evHandler("worker: resolveOperations: received shut signal")
			return
		}
	}
}

// runResolveOperation replaces the chain with a longer valid chain from a
// peer if one exists.
func (w *Worker) runResolveOperation() {
	w.evHandler("worker: runResolveOperation: started")
	defer w.evHandler("worker: runResolveOperation: completed")

	res, err := w.state.Resolve(w.ctx)
	if err != nil {
		w.evHandler("worker: runResolveOperation: ERROR: %s", err)
		return
	}

	for _, po := range res.Outcomes {
		w.evHandler("worker: runResolveOperation: peer[%s]: length[%d]: status[%s]", po.Peer, po.Length, po.Status)
	}

	if res.Replaced {
		w.evHandler("worker: runResolveOperation: chain replaced: length[%d]", len(res.Chain))
	}
}
