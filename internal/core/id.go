package core

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/teris-io/shortid"
)

// IDStrategy names how transaction IDs are produced.
type IDStrategy string

const (
	IDStrategyAuto      IDStrategy = "auto"
	IDStrategyUUID      IDStrategy = "uuid"
	IDStrategyTimestamp IDStrategy = "timestamp"
)

// IDGenerator produces collision resistant transaction IDs.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a plain function to IDGenerator.
type IDGeneratorFunc func() string

func (f IDGeneratorFunc) NewID() string {
	return f()
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() string {
	return uuid.NewString()
}

// timestampGenerator builds "id_<unix millis>_<random>" identifiers. It
// needs no coordination since a single process owns the ledger.
type timestampGenerator struct {
	sid *shortid.Shortid
	now func() time.Time
}

func newTimestampGenerator(now func() time.Time) (*timestampGenerator, error) {
	sid, err := shortid.New(1, shortid.DefaultABC, uint64(now().UnixNano()))
	if err != nil {
		return nil, fmt.Errorf("create shortid source: %w", err)
	}
	return &timestampGenerator{sid: sid, now: now}, nil
}

func (g *timestampGenerator) NewID() string {
	suffix, err := g.sid.Generate()
	if err != nil {
		suffix = strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return fmt.Sprintf("id_%d_%s", g.now().UnixMilli(), suffix)
}

// DetectIDGenerator picks the ID strategy once at startup. With
// IDStrategyAuto a random UUID is preferred; if the entropy source fails
// the probe the timestamp strategy is used instead.
func DetectIDGenerator(strategy IDStrategy) (IDGenerator, IDStrategy, error) {
	switch strategy {
	case IDStrategyUUID:
		return uuidGenerator{}, IDStrategyUUID, nil
	case IDStrategyTimestamp:
		g, err := newTimestampGenerator(time.Now)
		if err != nil {
			return nil, "", err
		}
		return g, IDStrategyTimestamp, nil
	case IDStrategyAuto, "":
		if _, err := uuid.NewRandom(); err == nil {
			return uuidGenerator{}, IDStrategyUUID, nil
		}
		g, err := newTimestampGenerator(time.Now)
		if err != nil {
			return nil, "", err
		}
		return g, IDStrategyTimestamp, nil
	default:
		return nil, "", fmt.Errorf("unknown id strategy %q", strategy)
	}
}
