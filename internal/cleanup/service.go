package cleanup

import (
	"time"

	"nexsentri-go/internal/store"

	log "github.com/sirupsen/logrus"
)

// Service handles the automatic pruning of the config snapshot history.
type Service struct {
	store         *store.Store
	maxSnapshots  int
	checkInterval time.Duration
	stopChan      chan struct{} // Channel to signal stopping the background routine
}

// NewService creates a new cleanup service.
func NewService(st *store.Store, maxSnapshots int, checkInterval time.Duration) *Service {
	if maxSnapshots <= 0 {
		log.Info("Automatic snapshot cleanup disabled (max_snapshots <= 0).")
		return nil // Return nil if cleanup is disabled
	}
	if st == nil {
		log.Error("Cannot initialize cleanup service: store is nil")
		return nil
	}
	log.Infof("Initializing cleanup service: MaxSnapshots=%d, CheckInterval=%s", maxSnapshots, checkInterval)
	return &Service{
		store:         st,
		maxSnapshots:  maxSnapshots,
		checkInterval: checkInterval,
		stopChan:      make(chan struct{}),
	}
}

// StartBackgroundCleanup starts a goroutine that periodically runs the cleanup cycle.
func (s *Service) StartBackgroundCleanup() {
	if s == nil {
		return // Service was not initialized (cleanup disabled)
	}
	log.Info("Starting background cleanup routine...")

	// Run cleanup once immediately on start
	go func() {
		log.Info("Running initial cleanup check on startup...")
		s.RunCleanupCycle()
	}()

	ticker := time.NewTicker(s.checkInterval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				log.Debug("Running scheduled cleanup cycle...")
				s.RunCleanupCycle()
			case <-s.stopChan:
				log.Info("Stopping background cleanup routine.")
				return
			}
		}
	}()
}

// StopBackgroundCleanup signals the background cleanup routine to stop.
func (s *Service) StopBackgroundCleanup() {
	if s == nil || s.stopChan == nil {
		return
	}
	// Check if channel is already closed to prevent panic
	select {
	case <-s.stopChan:
		// Already closed
	default:
		close(s.stopChan)
	}
}

// RunCleanupCycle performs one cleanup cycle, pruning snapshots beyond the
// retention window.
func (s *Service) RunCleanupCycle() {
	if s == nil || s.maxSnapshots <= 0 {
		log.Debug("Skipping cleanup cycle: service not initialized or cleanup disabled.")
		return
	}

	deleted, err := s.store.PruneSnapshots(s.maxSnapshots)
	if err != nil {
		log.Errorf("Cleanup: Error pruning snapshot history: %v", err)
		return
	}

	if deleted > 0 {
		log.Infof("Cleanup cycle finished. Pruned %d snapshot(s).", deleted)
	} else {
		log.Debug("Cleanup: No snapshots beyond retention window.")
	}
}
