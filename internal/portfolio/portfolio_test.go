package portfolio

import (
	"testing"

	"alphadesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyBuy(t *testing.T) {
	t.Run("full fill reduces cash and grows basis", func(t *testing.T) {
		s := NewState(100000)
		got := s.ApplyBuy("AAPL", 100, 150.0)
		assert.Equal(t, 100, got)

		snap := s.Snapshot()
		assert.InDelta(t, 85000.0, snap.Cash, 1e-9)
		assert.Equal(t, 100, snap.Positions["AAPL"])
		assert.InDelta(t, 15000.0, snap.CostBasis["AAPL"], 1e-9)
	})

	t.Run("clips quantity to available cash", func(t *testing.T) {
		s := NewState(1000)
		got := s.ApplyBuy("AAPL", 100, 150.0)
		assert.Equal(t, 6, got)

		snap := s.Snapshot()
		assert.InDelta(t, 100.0, snap.Cash, 1e-9)
		assert.GreaterOrEqual(t, snap.Cash, 0.0)
	})

	t.Run("no cash means no fill", func(t *testing.T) {
		s := NewState(50)
		assert.Equal(t, 0, s.ApplyBuy("AAPL", 10, 150.0))
		assert.Equal(t, 0, s.Snapshot().Positions["AAPL"])
	})
}

func TestApplySell(t *testing.T) {
	t.Run("partial sell realizes gains and shrinks basis proportionally", func(t *testing.T) {
		s := NewState(100000)
		s.ApplyBuy("AAPL", 100, 100.0)

		got := s.ApplySell("AAPL", 40, 120.0)
		assert.Equal(t, 40, got)

		snap := s.Snapshot()
		assert.Equal(t, 60, snap.Positions["AAPL"])
		// avg cost 100, sold 40 at 120 -> 800 gain
		assert.InDelta(t, 800.0, snap.RealizedGains["AAPL"], 1e-9)
		// basis shrinks by 40%: 10000 -> 6000
		assert.InDelta(t, 6000.0, snap.CostBasis["AAPL"], 1e-9)
		assert.InDelta(t, 90000+4800.0, snap.Cash, 1e-9)
	})

	t.Run("oversell clamps to held shares and zeroes basis", func(t *testing.T) {
		s := NewState(100000)
		s.ApplyBuy("AAPL", 50, 100.0)

		got := s.ApplySell("AAPL", 500, 110.0)
		assert.Equal(t, 50, got)

		snap := s.Snapshot()
		assert.Equal(t, 0, snap.Positions["AAPL"])
		assert.InDelta(t, 0.0, snap.CostBasis["AAPL"], 1e-9)
		assert.InDelta(t, 500.0, snap.RealizedGains["AAPL"], 1e-9)
	})

	t.Run("sell with no position is a no-op", func(t *testing.T) {
		s := NewState(1000)
		assert.Equal(t, 0, s.ApplySell("AAPL", 10, 100.0))
		assert.InDelta(t, 1000.0, s.Snapshot().Cash, 1e-9)
	})
}

func TestApply(t *testing.T) {
	s := NewState(10000)

	got, err := s.Apply("MSFT", types.ActionBuy, 10, 300.0)
	require.NoError(t, err)
	assert.Equal(t, 10, got)

	got, err = s.Apply("MSFT", types.ActionHold, 0, 300.0)
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	_, err = s.Apply("MSFT", types.Action("cover"), 5, 300.0)
	assert.Error(t, err)
}

func TestTotalValue(t *testing.T) {
	s := NewState(100000)
	s.ApplyBuy("AAPL", 100, 150.0)
	s.ApplyBuy("MSFT", 10, 300.0)

	total := s.TotalValue(map[string]float64{"AAPL": 160.0, "MSFT": 310.0})
	// cash 82000 + 16000 + 3100
	assert.InDelta(t, 101100.0, total, 1e-9)

	// missing price falls back to cost basis
	total = s.TotalValue(map[string]float64{"AAPL": 160.0})
	assert.InDelta(t, 82000+16000+3000.0, total, 1e-9)
}

func TestNewStateFromBroker(t *testing.T) {
	account := types.AccountSnapshot{Cash: 25000, BuyingPower: 50000}
	positions := []types.BrokerPosition{{Symbol: "NVDA", Qty: 20, CostBasis: 9000}}

	s := NewStateFromBroker(account, positions)
	snap := s.Snapshot()
	assert.InDelta(t, 25000.0, snap.Cash, 1e-9)
	assert.InDelta(t, 50000.0, snap.BuyingPower, 1e-9)
	assert.Equal(t, 20, snap.Positions["NVDA"])
	assert.InDelta(t, 9000.0, snap.CostBasis["NVDA"], 1e-9)
}
