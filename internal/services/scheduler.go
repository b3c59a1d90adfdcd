package services

import (
	"errors"
	"log"
	"time"
)

// Scheduler polls for auctions past their start or end time and drives the
// lifecycle transitions. Ticks may race an admin's explicit call for the
// same auction; the state machine guarantees only one transition wins, so a
// lost race surfaces as ErrAuctionAlreadyEnded and is ignored here.
type Scheduler struct {
	auctions *AuctionService
	ticker   *time.Ticker
	shutdown chan struct{}
}

func NewScheduler(auctions *AuctionService, interval time.Duration) *Scheduler {
	return &Scheduler{
		auctions: auctions,
		ticker:   time.NewTicker(interval),
		shutdown: make(chan struct{}),
	}
}

// Start begins ticking in the background.
func (s *Scheduler) Start() {
	go func() {
		defer s.ticker.Stop()
		for {
			select {
			case <-s.ticker.C:
				s.Tick(time.Now())
			case <-s.shutdown:
				return
			}
		}
	}()
}

// Stop shuts the scheduler down.
func (s *Scheduler) Stop() {
	close(s.shutdown)
}

// Tick processes all due auctions once.
func (s *Scheduler) Tick(now time.Time) {
	toEnd, toStart, err := s.auctions.DueAuctions(now)
	if err != nil {
		log.Printf("scheduler: failed to list due auctions: %v", err)
		return
	}

	for _, a := range toStart {
		if _, err := s.auctions.StartAuction(a.ID); err != nil && !errors.Is(err, ErrAuctionAlreadyEnded) {
			log.Printf("scheduler: failed to start auction %d: %v", a.ID, err)
		}
	}

	for _, a := range toEnd {
		if _, err := s.auctions.EndAuction(a.ID); err != nil {
			if errors.Is(err, ErrAuctionAlreadyEnded) {
				continue // someone else ended it first
			}
			log.Printf("scheduler: failed to end auction %d: %v", a.ID, err)
		}
	}
}
