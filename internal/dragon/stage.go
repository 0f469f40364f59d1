package dragon

import (
	"fmt"
	"strings"
)

// Stage 龙宠成长阶段（严格有序）
type Stage int

const (
	StageEgg Stage = iota
	StageHatchling
	StageYoung
	StageTeen
	StageAdult
)

// 各阶段的累计经验门槛
var stageThresholds = [...]int64{
	StageEgg:       0,
	StageHatchling: 100,
	StageYoung:     400,
	StageTeen:      1000,
	StageAdult:     2000,
}

var stageNames = [...]string{
	StageEgg:       "egg",
	StageHatchling: "hatchling",
	StageYoung:     "young",
	StageTeen:      "teen",
	StageAdult:     "adult",
}

// String 阶段名称
func (s Stage) String() string {
	if !s.Valid() {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Valid 是否为合法阶段
func (s Stage) Valid() bool {
	return s >= StageEgg && s <= StageAdult
}

// Terminal 是否为最终阶段
func (s Stage) Terminal() bool {
	return s == StageAdult
}

// Threshold 进入该阶段所需的累计经验
func (s Stage) Threshold() int64 {
	if !s.Valid() {
		return 0
	}
	return stageThresholds[s]
}

// ParseStage 解析阶段名称，未知名称返回egg
func ParseStage(name string) Stage {
	for i, n := range stageNames {
		if strings.EqualFold(n, name) {
			return Stage(i)
		}
	}
	return StageEgg
}

// StageFor 返回门槛不超过经验值的最高阶段
func StageFor(experience int64) Stage {
	stage := StageEgg
	for s := StageHatchling; s <= StageAdult; s++ {
		if experience >= stageThresholds[s] {
			stage = s
		}
	}
	return stage
}

// Evolve 根据经验计算新阶段，可一次跨越多个阶段，阶段不会倒退
func Evolve(current Stage, experience int64) (next Stage, evolved bool) {
	if !current.Valid() {
		current = StageEgg
	}
	next = StageFor(experience)
	if next < current {
		next = current
	}
	return next, next != current
}

// Progress 升级进度
type Progress struct {
	Stage      Stage `json:"-"`
	Experience int64 `json:"experience"`
	// Required 距离下一阶段还需的经验，最终阶段为0
	Required int64 `json:"xp_required"`
	// Percent 当前阶段内的进度百分比 [0,100]
	Percent int `json:"xp_progress"`
	// NextStage 下一阶段名称，最终阶段为空
	NextStage string `json:"next_stage,omitempty"`
}

// ProgressOf 计算当前阶段到下一阶段的进度
func ProgressOf(stage Stage, experience int64) Progress {
	p := Progress{Stage: stage, Experience: experience}
	if !stage.Valid() || stage.Terminal() {
		p.Percent = 100
		return p
	}

	cur := stage.Threshold()
	next := (stage + 1).Threshold()
	p.NextStage = (stage + 1).String()

	p.Required = next - experience
	if p.Required < 0 {
		p.Required = 0
	}

	pct := (experience - cur) * 100 / (next - cur)
	switch {
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}
	p.Percent = int(pct)

	return p
}
