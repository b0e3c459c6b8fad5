package replication

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	JournalBufferSize     = 1024                   // Circular buffer size
	MaxJournalPerSec      = 10000                  // Global rate limit
	MaxJournalPerObserver = 200                    // Per-observer rate limit per second
	JournalFlushSize      = 64                     // Entries per batch write
	JournalFlushInterval  = 100 * time.Millisecond // How often to flush
	ObserverLimiterTTL    = 5 * time.Minute        // Idle time before an observer limiter is dropped
)

// Decision is what the world decided to send an observer about an entity.
type Decision string

const (
	DecisionCreate     Decision = "create"
	DecisionRefresh    Decision = "refresh"
	DecisionDestroy    Decision = "destroy"
	DecisionOutOfRange Decision = "out_of_range"
)

// JournalEntry records one visibility decision.
type JournalEntry struct {
	Sequence uint64   `json:"seq"`
	Tick     uint64   `json:"tick"`
	Time     int64    `json:"ts"`
	Decision Decision `json:"decision"`
	Observer string   `json:"observer"`
	Target   string   `json:"target"`
	Bytes    int      `json:"bytes,omitempty"`
}

// Journal is a bounded, rate-limited JSONL log of replication decisions.
// Under pressure it drops entries rather than slowing the tick.
type Journal struct {
	// Circular buffer (SPSC: tick goroutine produces, writer consumes)
	buffer    [JournalBufferSize]JournalEntry
	writeHead uint64 // atomic
	readHead  uint64 // atomic

	globalLimiter    *rate.Limiter
	observerLimiters sync.Map // map[string]*observerLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	file   *os.File
	fileMu sync.Mutex

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic

	writeErrLogged atomic.Bool
}

type observerLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64 // unix nano
}

// NewJournal creates a stopped journal.
func NewJournal() *Journal {
	return &Journal{
		globalLimiter: rate.NewLimiter(MaxJournalPerSec, MaxJournalPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start begins the async writer. An empty path keeps entries in memory
// only, where they are counted and discarded.
func (j *Journal) Start(path string) error {
	if j.running.Load() {
		return nil
	}

	if path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		j.file = file
	}

	j.running.Store(true)
	j.writerWg.Add(2)
	go j.writerLoop()
	go j.cleanupLoop()
	return nil
}

// Stop flushes pending entries and closes the file.
func (j *Journal) Stop() {
	j.stopOnce.Do(func() {
		j.running.Store(false)
		close(j.stopChan)
		j.writerWg.Wait()

		j.fileMu.Lock()
		if j.file != nil {
			j.file.Close()
		}
		j.fileMu.Unlock()
	})
}

// Record adds an entry. It returns false when the entry was dropped.
func (j *Journal) Record(e JournalEntry) bool {
	if !j.running.Load() {
		return false
	}

	if !j.globalLimiter.Allow() {
		atomic.AddUint64(&j.droppedCount, 1)
		journalDropped.Inc()
		return false
	}
	if e.Observer != "" && !j.observerLimiter(e.Observer).Allow() {
		atomic.AddUint64(&j.droppedCount, 1)
		journalDropped.Inc()
		return false
	}

	head := atomic.AddUint64(&j.writeHead, 1)
	tail := atomic.LoadUint64(&j.readHead)
	if head-tail >= JournalBufferSize {
		// Drop the oldest entry to keep a rolling window
		atomic.AddUint64(&j.readHead, 1)
		atomic.AddUint64(&j.droppedCount, 1)
		journalDropped.Inc()
	}

	e.Sequence = head
	if e.Time == 0 {
		e.Time = time.Now().UnixNano()
	}
	j.buffer[head%JournalBufferSize] = e
	atomic.AddUint64(&j.totalCount, 1)
	return true
}

func (j *Journal) observerLimiter(id string) *rate.Limiter {
	now := time.Now().UnixNano()
	if v, ok := j.observerLimiters.Load(id); ok {
		e := v.(*observerLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}
	e := &observerLimiterEntry{limiter: rate.NewLimiter(MaxJournalPerObserver, MaxJournalPerObserver/10)}
	e.lastUsed.Store(now)
	actual, _ := j.observerLimiters.LoadOrStore(id, e)
	return actual.(*observerLimiterEntry).limiter
}

func (j *Journal) writerLoop() {
	defer j.writerWg.Done()

	ticker := time.NewTicker(JournalFlushInterval)
	defer ticker.Stop()

	batch := make([]JournalEntry, 0, JournalFlushSize)
	for {
		select {
		case <-j.stopChan:
			for {
				batch = j.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				j.flushBatch(batch)
			}
		case <-ticker.C:
			batch = j.collectBatch(batch[:0])
			if len(batch) > 0 {
				j.flushBatch(batch)
			}
		}
	}
}

func (j *Journal) cleanupLoop() {
	defer j.writerWg.Done()

	ticker := time.NewTicker(ObserverLimiterTTL)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-ObserverLimiterTTL).UnixNano()
			j.observerLimiters.Range(func(key, value any) bool {
				if value.(*observerLimiterEntry).lastUsed.Load() < cutoff {
					j.observerLimiters.Delete(key)
				}
				return true
			})
		}
	}
}

func (j *Journal) collectBatch(batch []JournalEntry) []JournalEntry {
	head := atomic.LoadUint64(&j.writeHead)
	tail := atomic.LoadUint64(&j.readHead)

	for i := tail + 1; i <= head && len(batch) < JournalFlushSize; i++ {
		batch = append(batch, j.buffer[i%JournalBufferSize])
	}
	if len(batch) > 0 {
		atomic.AddUint64(&j.readHead, uint64(len(batch)))
	}
	return batch
}

// flushBatch appends entries as newline-delimited JSON.
func (j *Journal) flushBatch(batch []JournalEntry) {
	j.fileMu.Lock()
	defer j.fileMu.Unlock()

	if j.file == nil {
		return
	}
	for _, e := range batch {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		if _, err := j.file.Write(append(data, '\n')); err != nil {
			atomic.AddUint64(&j.droppedCount, 1)
			journalDropped.Inc()
			if j.writeErrLogged.CompareAndSwap(false, true) {
				log.Printf("⚠️ Journal write failed, dropping entries: %v", err)
			}
		}
	}
}

// JournalStats summarizes the journal for the stats endpoint.
type JournalStats struct {
	Total   uint64 `json:"total"`
	Dropped uint64 `json:"dropped"`
	Pending uint64 `json:"pending"`
	Running bool   `json:"running"`
}

func (j *Journal) Stats() JournalStats {
	head := atomic.LoadUint64(&j.writeHead)
	tail := atomic.LoadUint64(&j.readHead)
	return JournalStats{
		Total:   atomic.LoadUint64(&j.totalCount),
		Dropped: atomic.LoadUint64(&j.droppedCount),
		Pending: head - tail,
		Running: j.running.Load(),
	}
}
