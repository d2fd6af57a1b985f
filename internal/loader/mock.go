package loader

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/sells-group/telesales-cli/internal/model"
)

// MockLoader generates deterministic candidate pools for dry runs and tests.
// The same (source, window, seed) triple always yields the same records for
// a given reference date.
type MockLoader struct {
	Seed     int64
	PoolSize int
}

// NewMockLoader builds a mock loader with the configured seed and pool size.
func NewMockLoader(seed int64, poolSize int) *MockLoader {
	if poolSize <= 0 {
		poolSize = 40
	}
	return &MockLoader{Seed: seed, PoolSize: poolSize}
}

var mockRewardRanks = []string{"GOLD", "SILVER"}

var mockTiers = []string{"A-1", "A-2", "B-1", "B-2", "C-1"}

func (m *MockLoader) Fetch(_ context.Context, source model.SourceKey, window model.Window, ref time.Time) ([]model.RawLead, error) {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%d", source, window.Label, m.Seed)
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	dmin := window.DayMin
	dmax := dmin + 25
	if window.DayMax != nil {
		dmax = *window.DayMax
	}

	out := make([]model.RawLead, 0, m.PoolSize)
	for i := 1; i <= m.PoolSize; i++ {
		days := dmin + rng.Intn(dmax-dmin+1)
		lastLogin := time.Date(ref.Year(), ref.Month(), ref.Day(), 10, 0, 0, 0, ref.Location()).
			AddDate(0, 0, -days)
		lastSeen := lastLogin.Add(time.Duration(rng.Intn(13)) * time.Hour)

		topup := float64(rng.Intn(200)) * 1000
		arkGem := float64(rng.Intn(49000) + 1000)

		out = append(out, model.RawLead{
			Username:      fmt.Sprintf("%s_user%03d", source, i),
			Phone:         mockPhone(rng),
			Source:        source,
			LastLogin:     &lastLogin,
			LastSeen:      &lastSeen,
			TopupAmount:   &topup,
			DeclaredTier:  mockTiers[rng.Intn(len(mockTiers))],
			ArkGemBalance: &arkGem,
			RewardRank:    mockRewardRanks[rng.Intn(len(mockRewardRanks))],
		})
	}
	return out, nil
}

func mockPhone(rng *rand.Rand) string {
	prefixes := []string{"08", "09", "06"}
	digits := prefixes[rng.Intn(len(prefixes))]
	for i := 0; i < 8; i++ {
		digits += string(rune('0' + rng.Intn(10)))
	}
	return digits
}

// NoRedemptions is the redemption source used when no reporting database is
// configured.
type NoRedemptions struct{}

func (NoRedemptions) RedeemedToday(context.Context, time.Time) (map[string]bool, error) {
	return map[string]bool{}, nil
}
