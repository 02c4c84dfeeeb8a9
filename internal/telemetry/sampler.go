package telemetry

import (
	"math/rand"
	"sync"
	"time"

	"nexsentri-go/config"
	"nexsentri-go/internal/core/models"
	"nexsentri-go/internal/server/sse"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	log "github.com/sirupsen/logrus"
)

// HistorySize begrenzt die rollierende Messhistorie
const HistorySize = 20

// Sampler erzeugt in festem Takt eine Systemmessung und pflegt die
// rollierende Historie. Das Erzeugen einer Messung kann nicht fehlschlagen.
type Sampler struct {
	cfg config.TelemetryConfig
	hub *sse.Hub

	mu      sync.RWMutex
	current models.TelemetrySample
	history []models.TelemetrySample

	rng *rand.Rand

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewSampler erstellt einen neuen Telemetry-Sampler
func NewSampler(cfg config.TelemetryConfig, hub *sse.Hub) *Sampler {
	return &Sampler{
		cfg:     cfg,
		hub:     hub,
		history: make([]models.TelemetrySample, 0, HistorySize),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		stopCh:  make(chan struct{}),
	}
}

// Start beginnt das periodische Sampling
func (s *Sampler) Start() {
	s.Record(s.Sample())

	s.wg.Add(1)
	go s.run()

	log.Infof("Telemetry sampler started (mode=%s, interval=%ds)", s.cfg.Mode, s.intervalSeconds())
}

// Stop beendet das Sampling deterministisch
func (s *Sampler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	log.Info("Telemetry sampler stopped")
}

func (s *Sampler) intervalSeconds() int {
	if s.cfg.IntervalSeconds <= 0 {
		return 2
	}
	return s.cfg.IntervalSeconds
}

func (s *Sampler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Duration(s.intervalSeconds()) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Record(s.Sample())
		}
	}
}

// Sample erzeugt eine einzelne Messung gemäß konfiguriertem Modus
func (s *Sampler) Sample() models.TelemetrySample {
	if s.cfg.Mode == "system" {
		return s.systemSample()
	}
	return s.syntheticSample()
}

// syntheticSample liefert pseudo-zufällige Werte in festen Bändern
func (s *Sampler) syntheticSample() models.TelemetrySample {
	return models.TelemetrySample{
		CPUUsage:     15 + s.rng.Float64()*20,   // 15-35%
		MemoryUsage:  2048 + s.rng.Float64()*512, // ~2-2.5 GB
		Temperature:  45 + s.rng.Float64()*10,   // 45-55°C
		StorageUsed:  45,                        // static for now
		StorageTotal: 32,
		Timestamp:    time.Now(),
	}
}

// systemSample liest echte Werte über gopsutil. Einzelne Messfehler fallen
// auf die synthetischen Bänder zurück, damit die Operation nie fehlschlägt.
func (s *Sampler) systemSample() models.TelemetrySample {
	sample := s.syntheticSample()

	if percentages, err := cpu.Percent(0, false); err == nil && len(percentages) > 0 {
		sample.CPUUsage = percentages[0]
	} else if err != nil {
		log.Debugf("CPU usage read failed: %v", err)
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		sample.MemoryUsage = float64(vm.Used) / (1024 * 1024)
	} else {
		log.Debugf("Memory read failed: %v", err)
	}

	if usage, err := disk.Usage(s.cfg.StoragePath); err == nil {
		sample.StorageUsed = float64(usage.Used) / (1024 * 1024 * 1024)
		sample.StorageTotal = float64(usage.Total) / (1024 * 1024 * 1024)
	} else {
		log.Debugf("Disk usage read failed: %v", err)
	}

	return sample
}

// Record macht die Messung zur aktuellen und hängt sie an die Historie an.
// Überschreitet die Historie die Fenstergröße, fällt der älteste Eintrag heraus.
func (s *Sampler) Record(sample models.TelemetrySample) {
	s.mu.Lock()
	s.current = sample
	s.history = append(s.history, sample)
	if len(s.history) > HistorySize {
		s.history = s.history[len(s.history)-HistorySize:]
	}
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.BroadcastUpdate("telemetry", sample)
	}
}

// Current liefert die letzte Messung
func (s *Sampler) Current() models.TelemetrySample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// History liefert eine Kopie der Historie, älteste zuerst
func (s *Sampler) History() []models.TelemetrySample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]models.TelemetrySample, len(s.history))
	copy(snapshot, s.history)
	return snapshot
}
