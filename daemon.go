package main

import (
	"sync/atomic"
	"time"

	"github.com/hexmire/subtail/domain/subblockdag"
	"github.com/hexmire/subtail/infrastructure/config"
	"github.com/hexmire/subtail/protocol/mempoolsync"
	"github.com/hexmire/subtail/util/localmempool"
	"github.com/hexmire/subtail/util/locks"
	"github.com/hexmire/subtail/util/panics"
	"github.com/hexmire/subtail/util/profiling"
	"github.com/hexmire/subtail/util/systemclock"
)

// admissionDrainInterval is how often the daemon hands whatever
// mempool-sync has queued off to the (absent, in this reference daemon)
// validation pipeline.
const admissionDrainInterval = 5 * time.Second

// subtaild is a wrapper for the mempool-sync and subblock-DAG services this
// process hosts. It does not itself speak the wire protocol; a real node
// wires its netadapter's peer routes into syncManager's handlers.
type subtaild struct {
	syncManager *mempoolsync.Manager
	dagSet      *subblockdag.DagSet
	mempool     *localmempool.Store
	orphans     *localmempool.OrphanPool
	admission   *localmempool.AdmissionQueue
	misbehavior *localmempool.BanScores
	chain       *localmempool.ChainHeights

	shutdownWG   *locks.WaitGroup
	shutdownChan chan struct{}

	started, shutdown int32
}

// newSubtaild wires the core's collaborators using the reference in-memory
// mempool/orphan-pool/ban-score/chain-state implementations, since this
// repository's scope stops at the sync and DAG algorithms themselves.
func newSubtaild(cfg *config.Config) (*subtaild, error) {
	clock, err := systemclock.New()
	if err != nil {
		return nil, err
	}

	mempool := localmempool.NewStore()
	orphans := localmempool.NewOrphanPool()
	admission := localmempool.NewAdmissionQueue()
	misbehavior := localmempool.NewBanScores()
	chain := localmempool.NewChainHeights()
	registry := mempoolsync.NewSyncRegistry()

	syncManager := mempoolsync.NewManager(
		cfg.ToMempoolSyncConfig(),
		mempool,
		orphans,
		admission,
		chain,
		clock,
		misbehavior,
		registry,
	)

	dagSet := subblockdag.New(cfg.BobtailK)

	return &subtaild{
		syncManager:  syncManager,
		dagSet:       dagSet,
		mempool:      mempool,
		orphans:      orphans,
		admission:    admission,
		misbehavior:  misbehavior,
		chain:        chain,
		shutdownWG:   locks.NewWaitGroup(),
		shutdownChan: make(chan struct{}),
	}, nil
}

// start launches the daemon's background services.
func (s *subtaild) start(cfg *config.Config) {
	if atomic.AddInt32(&s.started, 1) != 1 {
		return
	}

	log.Infof("subtaild starting, bobtailK=%d syncmempoolwithpeers=%t",
		cfg.BobtailK, cfg.SyncMempoolWithPeers)

	spawn := panics.GoroutineWrapperFunc(log)

	if cfg.ProfilePort != "" {
		profiling.Start(cfg.ProfilePort, log)
	}

	s.shutdownWG.Add()
	spawn("subtaild-admissionDrainLoop", func() {
		defer s.shutdownWG.Done()
		s.admissionDrainLoop()
	})
}

// admissionDrainLoop periodically hands whatever mempool-sync has queued for
// admission off to the real validation pipeline. This reference daemon has
// none, so it only logs what would have been admitted.
func (s *subtaild) admissionDrainLoop() {
	ticker := time.NewTicker(admissionDrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, tx := range s.admission.Drain() {
				log.Debugf("admission queue drained transaction %s (%d bytes)", tx.Hash, len(tx.Payload))
			}
		case <-s.shutdownChan:
			return
		}
	}
}

// stop gracefully shuts the daemon's services down.
func (s *subtaild) stop() {
	if atomic.AddInt32(&s.shutdown, 1) != 1 {
		log.Infof("subtaild is already in the process of shutting down")
		return
	}

	log.Warnf("subtaild shutting down")
	close(s.shutdownChan)
}

// waitForShutdown blocks until every background service launched by start
// has returned.
func (s *subtaild) waitForShutdown() {
	s.shutdownWG.Wait()
}
