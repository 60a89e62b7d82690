package meeting

// reset drops the engine so each test starts from a fresh Init. The old
// loop keeps running until its context is cancelled.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	eng = nil
	pendingStart, pendingEnd = nil, nil
}
