package dragon

// 属性取值范围
const (
	StatMin = 0
	StatMax = 100
)

// Stat 可被物品影响的属性
type Stat string

const (
	StatHunger    Stat = "hunger"
	StatHappiness Stat = "happiness"
	StatBond      Stat = "bond"
	StatHealth    Stat = "health"
)

// Stats 龙宠的数值属性
type Stats struct {
	Hunger    int `json:"hunger"`
	Happiness int `json:"happiness"`
	Health    int `json:"health"`
	Bond      int `json:"bond_level"`
}

// Effects 属性增量（只允许正数）
type Effects map[Stat]int

// Empty 是否无任何效果
func (e Effects) Empty() bool {
	for _, v := range e {
		if v > 0 {
			return false
		}
	}
	return true
}

// Merge 合并两组效果，返回新的Effects
func (e Effects) Merge(other Effects) Effects {
	out := make(Effects, len(e)+len(other))
	for k, v := range e {
		out[k] += v
	}
	for k, v := range other {
		out[k] += v
	}
	return out
}

// Clamp 将数值限制在 [StatMin, StatMax]
func Clamp(v int) int {
	if v < StatMin {
		return StatMin
	}
	if v > StatMax {
		return StatMax
	}
	return v
}

// Clamped 返回所有属性都被限制在范围内的副本
func (s Stats) Clamped() Stats {
	return Stats{
		Hunger:    Clamp(s.Hunger),
		Happiness: Clamp(s.Happiness),
		Health:    Clamp(s.Health),
		Bond:      Clamp(s.Bond),
	}
}

// Apply 累加效果并截断，非正数增量被忽略
func (s Stats) Apply(effects Effects) Stats {
	out := s
	for stat, delta := range effects {
		if delta <= 0 {
			continue
		}
		switch stat {
		case StatHunger:
			out.Hunger += delta
		case StatHappiness:
			out.Happiness += delta
		case StatHealth:
			out.Health += delta
		case StatBond:
			out.Bond += delta
		}
	}
	return out.Clamped()
}
