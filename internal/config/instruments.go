package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/assist-by/relay/internal/domain"
)

// LoadInstruments는 심볼별 주문 제약 YAML 파일을 읽습니다.
// path가 비어있으면 빈 맵을 반환합니다. 예시:
//
//	ETHUSDT:
//	  min_qty: 0.01
//	  qty_step: 0.01
//	  price_tick: 0.01
func LoadInstruments(path string) (map[string]domain.InstrumentLimits, error) {
	out := make(map[string]domain.InstrumentLimits)
	if path == "" {
		return out, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("심볼 설정 파일 읽기 실패: %w", err)
	}

	var raw map[string]domain.InstrumentLimits
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("심볼 설정 파싱 실패: %w", err)
	}

	for symbol, limits := range raw {
		if limits.MinQty.IsNegative() || limits.MaxQty.IsNegative() || limits.MinNotional.IsNegative() ||
			limits.QtyStep.IsNegative() || limits.PriceTick.IsNegative() {
			return nil, fmt.Errorf("%s: 주문 제약 값은 음수일 수 없습니다", symbol)
		}
		out[domain.NormalizeSymbol(symbol)] = limits
	}
	return out, nil
}
