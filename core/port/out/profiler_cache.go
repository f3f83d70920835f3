package out

import (
	"context"
	"time"
)

// LookupCache defines the outbound port for memoizing expensive lookups
// (geolocation, registry data, language-model calls). Implementations may be
// in-process or shared; a miss is (false, nil), never an error.
type LookupCache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}
