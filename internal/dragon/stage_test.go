package dragon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageFor(t *testing.T) {
	tests := []struct {
		name       string
		experience int64
		want       Stage
	}{
		{name: "初始", experience: 0, want: StageEgg},
		{name: "门槛前", experience: 99, want: StageEgg},
		{name: "恰好孵化", experience: 100, want: StageHatchling},
		{name: "恰好幼龙", experience: 400, want: StageYoung},
		{name: "恰好少年", experience: 1000, want: StageTeen},
		{name: "恰好成年", experience: 2000, want: StageAdult},
		{name: "成年之后", experience: 999999, want: StageAdult},
		{name: "负数经验", experience: -5, want: StageEgg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StageFor(tt.experience))
		})
	}
}

func TestEvolve_MultiStageJump(t *testing.T) {
	// 50 -> 1500 一次跨越到teen
	stage, evolved := Evolve(StageFor(50), 1500)
	assert.True(t, evolved)
	assert.Equal(t, StageTeen, stage)

	stage, evolved = Evolve(StageEgg, 410)
	assert.True(t, evolved)
	assert.Equal(t, StageYoung, stage)
}

func TestEvolve_NeverRegresses(t *testing.T) {
	stage, evolved := Evolve(StageTeen, 10)
	assert.False(t, evolved)
	assert.Equal(t, StageTeen, stage)

	stage, evolved = Evolve(StageAdult, 50000)
	assert.False(t, evolved)
	assert.Equal(t, StageAdult, stage)
}

func TestEvolve_Monotonic(t *testing.T) {
	current := StageEgg
	for xp := int64(0); xp <= 2500; xp += 7 {
		next, _ := Evolve(current, xp)
		assert.GreaterOrEqual(t, int(next), int(current), "xp=%d", xp)
		current = next
	}
	assert.Equal(t, StageAdult, current)
}

func TestProgressOf(t *testing.T) {
	tests := []struct {
		name         string
		stage        Stage
		experience   int64
		wantPercent  int
		wantRequired int64
	}{
		{name: "蛋阶段起点", stage: StageEgg, experience: 0, wantPercent: 0, wantRequired: 100},
		{name: "蛋阶段过半", stage: StageEgg, experience: 50, wantPercent: 50, wantRequired: 50},
		{name: "幼龙向下取整", stage: StageYoung, experience: 410, wantPercent: 1, wantRequired: 590},
		{name: "少年", stage: StageTeen, experience: 1999, wantPercent: 99, wantRequired: 1},
		{name: "成年", stage: StageAdult, experience: 2000, wantPercent: 100, wantRequired: 0},
		{name: "成年溢出", stage: StageAdult, experience: 9000, wantPercent: 100, wantRequired: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ProgressOf(tt.stage, tt.experience)
			assert.Equal(t, tt.wantPercent, p.Percent)
			assert.Equal(t, tt.wantRequired, p.Required)
		})
	}
}

func TestProgressOf_Clamped(t *testing.T) {
	// 阶段落后于经验时进度不会超过100
	p := ProgressOf(StageEgg, 5000)
	assert.Equal(t, 100, p.Percent)
	assert.Equal(t, int64(0), p.Required)
}

func TestParseStage(t *testing.T) {
	for s := StageEgg; s <= StageAdult; s++ {
		assert.Equal(t, s, ParseStage(s.String()))
	}
	assert.Equal(t, StageYoung, ParseStage("YOUNG"))
	assert.Equal(t, StageEgg, ParseStage("dinosaur"))
	assert.Equal(t, "stage(9)", Stage(9).String())
}
