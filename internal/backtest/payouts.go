package backtest

import (
	"fmt"
	"strings"
)

// Risk Keno赔率档位
type Risk string

const (
	RiskClassic Risk = "classic"
	RiskLow     Risk = "low"
	RiskMedium  Risk = "medium"
	RiskHigh    Risk = "high"
)

// MaxPicks 单注最多可选号码数
const MaxPicks = 10

// payoutTables 档位 -> 选号数 -> 命中数 -> 倍率，未列出的命中数倍率为0
var payoutTables = map[Risk]map[int]map[int]float64{
	RiskClassic: {
		1:  {1: 3.96},
		2:  {2: 9},
		3:  {3: 40},
		4:  {3: 2, 4: 10},
		5:  {3: 1.5, 4: 4, 5: 30},
		6:  {3: 1.2, 4: 2.5, 5: 10, 6: 75},
		7:  {3: 1, 4: 2, 5: 5, 6: 20, 7: 100},
		8:  {4: 1.5, 5: 4, 6: 10, 7: 50, 8: 200},
		9:  {3: 1.55, 4: 3, 5: 8, 6: 15, 7: 44, 8: 60, 9: 85},
		10: {3: 1, 4: 2, 5: 5, 6: 12, 7: 36, 8: 50, 9: 75, 10: 100},
	},
	RiskLow: {
		1:  {1: 3.96},
		2:  {1: 1, 2: 4},
		3:  {1: 1, 2: 1.5, 3: 10},
		4:  {2: 1.3, 3: 2, 4: 20},
		5:  {2: 1.2, 3: 1.7, 4: 5, 5: 50},
		6:  {2: 1.1, 3: 1.5, 4: 3, 5: 12, 6: 100},
		7:  {2: 1.05, 3: 1.4, 4: 2, 5: 5, 6: 25, 7: 200},
		8:  {2: 1, 3: 1.3, 4: 1.8, 5: 3, 6: 10, 7: 60, 8: 400},
		9:  {2: 1.1, 3: 1.3, 4: 1.7, 5: 2.5, 6: 7.5, 7: 50, 8: 250, 9: 1000},
		10: {2: 1, 3: 1.2, 4: 1.5, 5: 2, 6: 5, 7: 20, 8: 80, 9: 400, 10: 2000},
	},
	RiskMedium: {
		1:  {1: 3.96},
		2:  {1: 1.5, 2: 9},
		3:  {2: 2, 3: 25},
		4:  {2: 1.5, 3: 5, 4: 50},
		5:  {2: 1, 3: 3, 4: 12, 5: 100},
		6:  {3: 2, 4: 6, 5: 25, 6: 200},
		7:  {3: 1.5, 4: 4, 5: 12, 6: 50, 7: 400},
		8:  {3: 1, 4: 3, 5: 8, 6: 30, 7: 150, 8: 1000},
		9:  {3: 2, 4: 2.5, 5: 5, 6: 15, 7: 100, 8: 500, 9: 1000},
		10: {3: 1.5, 4: 2, 5: 4, 6: 10, 7: 50, 8: 250, 9: 1000, 10: 5000},
	},
	RiskHigh: {
		1:  {1: 3.96},
		2:  {2: 17},
		3:  {3: 81},
		4:  {3: 5, 4: 150},
		5:  {3: 3, 4: 20, 5: 300},
		6:  {3: 2, 4: 10, 5: 50, 6: 500},
		7:  {3: 1.5, 4: 5, 5: 25, 6: 150, 7: 1000},
		8:  {3: 1, 4: 3, 5: 12, 6: 60, 7: 400, 8: 2000},
		9:  {4: 4, 5: 11, 6: 56, 7: 500, 8: 800, 9: 1000},
		10: {4: 2, 5: 8, 6: 40, 7: 200, 8: 500, 9: 1000, 10: 5000},
	},
}

// Risks 全部档位
func Risks() []Risk {
	return []Risk{RiskClassic, RiskLow, RiskMedium, RiskHigh}
}

// ParseRisk 解析档位名
func ParseRisk(s string) (Risk, error) {
	r := Risk(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := payoutTables[r]; !ok {
		return "", fmt.Errorf("unknown risk level: %q", s)
	}
	return r, nil
}

// Multiplier 给定档位、选号数和命中数的赔付倍率
func Multiplier(risk Risk, picks, hits int) float64 {
	return payoutTables[risk][picks][hits]
}
