package service

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/parish-booking/internal/config"
	"github.com/iliyamo/parish-booking/internal/model"
	"github.com/iliyamo/parish-booking/internal/repository"
)

// DateStore is the read side of the booking store the availability index
// is computed from.
type DateStore interface {
	IsDateBooked(ctx context.Context, kind model.Kind, date model.Date) (bool, error)
	ListDates(ctx context.Context, f repository.DateFilter) ([]model.Date, error)
}

// AvailabilityIndex answers which dates are taken.  It keeps no state of its
// own: IsAvailable always asks the store, and the booked-date list is cached
// in Redis only when a client is configured.  The booking service calls
// Invalidate after every write that changes whether a date is booked.
type AvailabilityIndex struct {
	store DateStore
	rdb   *redis.Client
	cfg   config.AvailabilityCacheConfig
}

// NewAvailabilityIndex builds an index over store.  rdb may be nil, in which
// case every call recomputes from the store.
func NewAvailabilityIndex(store DateStore, rdb *redis.Client, cfg config.AvailabilityCacheConfig) *AvailabilityIndex {
	if !cfg.Enabled {
		rdb = nil
	}
	return &AvailabilityIndex{store: store, rdb: rdb, cfg: cfg}
}

func (a *AvailabilityIndex) cacheKey(kind model.Kind) string {
	return a.cfg.Prefix + ":" + string(kind)
}

// genKey counts invalidations of kind.  A refill computed before the latest
// invalidation must not be written back.
func (a *AvailabilityIndex) genKey(kind model.Kind) string {
	return a.cacheKey(kind) + ":gen"
}

// fillIfCurrent stores the computed list only while the generation is still
// the one read before querying the store.  KEYS: cache, generation.
// ARGV: expected generation, payload, ttl in ms.
var fillIfCurrent = redis.NewScript(`
	local gen = redis.call('GET', KEYS[2])
	if not gen then gen = '0' end
	if gen ~= ARGV[1] then
		return 0
	end
	redis.call('SET', KEYS[1], ARGV[2], 'PX', tonumber(ARGV[3]))
	return 1
`)

// IsAvailable reports whether no active booking of kind holds date.
func (a *AvailabilityIndex) IsAvailable(ctx context.Context, kind model.Kind, date model.Date) (bool, error) {
	booked, err := a.store.IsDateBooked(ctx, kind, date)
	if err != nil {
		return false, &StoreError{Op: "check availability", Err: err}
	}
	return !booked, nil
}

// ListBookedDates returns the booked dates of kind in ascending order,
// optionally limited to [from, to].  Zero bounds are open.
func (a *AvailabilityIndex) ListBookedDates(ctx context.Context, kind model.Kind, from, to model.Date) ([]model.Date, error) {
	all, err := a.bookedDates(ctx, kind)
	if err != nil {
		return nil, err
	}
	if from.IsZero() && to.IsZero() {
		return all, nil
	}
	out := make([]model.Date, 0, len(all))
	for _, d := range all {
		s := d.String()
		if !from.IsZero() && s < from.String() {
			continue
		}
		if !to.IsZero() && s > to.String() {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (a *AvailabilityIndex) bookedDates(ctx context.Context, kind model.Kind) ([]model.Date, error) {
	gen := ""
	if a.rdb != nil {
		if bs, err := a.rdb.Get(ctx, a.cacheKey(kind)).Bytes(); err == nil {
			var dates []model.Date
			if err := json.Unmarshal(bs, &dates); err == nil {
				return dates, nil
			}
		} else if err != redis.Nil {
			log.Printf("availability: cache read %s failed: %v", a.cacheKey(kind), err)
		}
		switch g, err := a.rdb.Get(ctx, a.genKey(kind)).Result(); {
		case err == nil:
			gen = g
		case err == redis.Nil:
			gen = "0"
		default:
			log.Printf("availability: generation read %s failed: %v", a.genKey(kind), err)
		}
	}

	dates, err := a.store.ListDates(ctx, repository.DateFilter{Kind: kind, BookedOnly: true})
	if err != nil {
		return nil, &StoreError{Op: "list booked dates", Err: err}
	}

	if gen != "" {
		payload, err := json.Marshal(dates)
		if err == nil {
			keys := []string{a.cacheKey(kind), a.genKey(kind)}
			err = fillIfCurrent.Run(ctx, a.rdb, keys, gen, payload, a.cfg.TTL.Milliseconds()).Err()
		}
		if err != nil {
			log.Printf("availability: cache write %s failed: %v", a.cacheKey(kind), err)
		}
	}
	return dates, nil
}

// Invalidate bumps the generation of kind and drops its cached list, so
// refills that started earlier are discarded.
func (a *AvailabilityIndex) Invalidate(ctx context.Context, kind model.Kind) {
	if a.rdb == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	_, err := a.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, a.genKey(kind))
		p.Del(ctx, a.cacheKey(kind))
		return nil
	})
	if err != nil {
		log.Printf("availability: cache invalidate %s failed: %v", a.cacheKey(kind), err)
	}
}
