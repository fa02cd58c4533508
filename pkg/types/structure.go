package types

// SwingKind 摆动点类型
type SwingKind int

const (
	SwingHigh SwingKind = iota
	SwingLow
)

func (k SwingKind) String() string {
	if k == SwingHigh {
		return "HIGH"
	}
	return "LOW"
}

// SwingLabel 相对于前一个同类摆动点的标签
type SwingLabel int

const (
	HigherHigh SwingLabel = iota
	LowerHigh
	HigherLow
	LowerLow
)

func (l SwingLabel) String() string {
	switch l {
	case HigherHigh:
		return "HH"
	case LowerHigh:
		return "LH"
	case HigherLow:
		return "HL"
	default:
		return "LL"
	}
}

// SwingPoint 摆动点
type SwingPoint struct {
	Index int        `json:"index"`
	Price float64    `json:"price"`
	Kind  SwingKind  `json:"kind"`
	Label SwingLabel `json:"label"`
}

// StructureDirection 结构方向
type StructureDirection int

const (
	Bullish StructureDirection = iota
	Bearish
)

func (d StructureDirection) String() string {
	if d == Bullish {
		return "BULLISH"
	}
	return "BEARISH"
}

// StructureEvent 结构突破（BOS）
type StructureEvent struct {
	Direction        StructureDirection `json:"direction"`
	BrokenPrice      float64            `json:"broken_price"`
	OriginSwingIndex int                `json:"origin_swing_index"`
	BreakIndex       int                `json:"break_index"` // 首个突破 BrokenPrice 的样本
}

// OrderBlock 订单块
type OrderBlock struct {
	ZoneHigh     float64            `json:"zone_high"`
	ZoneLow      float64            `json:"zone_low"`
	OriginIndex  int                `json:"origin_index"` // 反向运动起点
	EndIndex     int                `json:"end_index"`    // 反向运动终点
	Polarity     StructureDirection `json:"polarity"`     // 与所属 BOS 方向一致
	QualityScore float64            `json:"quality_score"`
}

// Mid 区间中点
func (ob OrderBlock) Mid() float64 {
	return (ob.ZoneHigh + ob.ZoneLow) / 2
}

// Contains 价格是否在区间内（含边界）
func (ob OrderBlock) Contains(price float64) bool {
	return price >= ob.ZoneLow && price <= ob.ZoneHigh
}

// Distance 价格到区间的距离，区间内为 0
func (ob OrderBlock) Distance(price float64) float64 {
	switch {
	case price < ob.ZoneLow:
		return ob.ZoneLow - price
	case price > ob.ZoneHigh:
		return price - ob.ZoneHigh
	default:
		return 0
	}
}
