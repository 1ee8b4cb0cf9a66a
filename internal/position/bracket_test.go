package position

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/relay/internal/domain"
)

var defaultBracket = BracketConfig{TakeProfitPct: d("2.72"), StopLossPct: d("9")}

func TestComputeBracket(t *testing.T) {
	tick := d("0.01")

	t.Run("롱 기본 퍼센트", func(t *testing.T) {
		b, err := ComputeBracket(domain.Long, d("2500"), nil, nil, defaultBracket, tick)
		require.NoError(t, err)
		assert.Equal(t, "2568", b.TakeProfit.String())
		assert.Equal(t, "2275", b.StopLoss.String())
	})

	t.Run("숏 기본 퍼센트", func(t *testing.T) {
		b, err := ComputeBracket(domain.Short, d("2500"), nil, nil, defaultBracket, tick)
		require.NoError(t, err)
		assert.Equal(t, "2432", b.TakeProfit.String())
		assert.Equal(t, "2725", b.StopLoss.String())
	})

	t.Run("tick 반올림", func(t *testing.T) {
		b, err := ComputeBracket(domain.Long, d("1.2345"), nil, nil, defaultBracket, tick)
		require.NoError(t, err)
		assert.Equal(t, "1.27", b.TakeProfit.String())
		assert.Equal(t, "1.12", b.StopLoss.String())
	})

	t.Run("명시 값 우선", func(t *testing.T) {
		tp, sl := d("2600"), d("2400")
		b, err := ComputeBracket(domain.Long, d("2500"), &tp, &sl, defaultBracket, tick)
		require.NoError(t, err)
		assert.True(t, b.TakeProfit.Equal(tp))
		assert.True(t, b.StopLoss.Equal(sl))
	})

	t.Run("방향과 맞지 않는 명시 값", func(t *testing.T) {
		tp := d("2400")
		_, err := ComputeBracket(domain.Long, d("2500"), &tp, nil, defaultBracket, tick)
		assert.ErrorIs(t, err, domain.ErrInvalidSignal)

		sl := d("2400")
		_, err = ComputeBracket(domain.Short, d("2500"), nil, &sl, defaultBracket, tick)
		assert.ErrorIs(t, err, domain.ErrInvalidSignal)
	})

	t.Run("손절 100% 이상은 거부", func(t *testing.T) {
		cfg := BracketConfig{TakeProfitPct: d("1"), StopLossPct: d("100")}
		_, err := ComputeBracket(domain.Long, d("2500"), nil, nil, cfg, tick)
		assert.ErrorIs(t, err, domain.ErrInvalidSignal)
	})
}

func TestComputeBracketDirectionProperty(t *testing.T) {
	prices := []string{"0.05", "1", "99.99", "2500", "65000.5"}
	for _, p := range prices {
		ref := d(p)
		tick := decimal.New(1, -4)

		long, err := ComputeBracket(domain.Long, ref, nil, nil, defaultBracket, tick)
		require.NoError(t, err)
		assert.True(t, long.TakeProfit.GreaterThan(ref) && ref.GreaterThan(long.StopLoss), p)

		short, err := ComputeBracket(domain.Short, ref, nil, nil, defaultBracket, tick)
		require.NoError(t, err)
		assert.True(t, short.TakeProfit.LessThan(ref) && ref.LessThan(short.StopLoss), p)
	}
}
