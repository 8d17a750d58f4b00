package roll

import (
	"errors"
	"testing"

	"github.com/jwebster45206/anima-narrator/pkg/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRoller returns faces in order and repeats the last one when exhausted.
type scriptedRoller struct {
	faces []int
	calls int
	err   error
}

func (s *scriptedRoller) Roll(size int) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	i := min(s.calls, len(s.faces)-1)
	s.calls++
	return s.faces[i], nil
}

func (s *scriptedRoller) RollN(count, size int) ([]int, error) {
	out := make([]int, 0, count)
	for range count {
		v, err := s.Roll(size)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func TestPoolSize(t *testing.T) {
	assert.Equal(t, 1, PoolSize(0))
	assert.Equal(t, 1, PoolSize(-3))
	assert.Equal(t, 1, PoolSize(1))
	assert.Equal(t, 5, PoolSize(5))
}

func TestResolve_ExplodingAndCritical(t *testing.T) {
	roller := &scriptedRoller{faces: []int{10, 9, 1}}
	r := NewResolver(roller, 0)

	res, err := r.Resolve(Input{SkillLevel: 2, AttributeLevel: 3, Bonus: 0, Difficulty: 8})
	require.NoError(t, err)

	require.Len(t, res.Dice, 3, "one extra die for the ten")
	assert.Equal(t, 3, roller.calls)

	assert.Equal(t, 18, res.Dice[0].Total)
	assert.True(t, res.Dice[0].Success)
	assert.True(t, res.Dice[0].Exploded)

	assert.Equal(t, 12, res.Dice[1].Total)
	assert.True(t, res.Dice[1].Success)

	assert.True(t, res.Dice[2].Critical)
	assert.False(t, res.Dice[2].Success)

	assert.Equal(t, 1, res.Successes)
	assert.False(t, res.Capped)
}

func TestResolve_PoolSize(t *testing.T) {
	tests := []struct {
		name      string
		skill     int
		faces     []int
		wantDice  int
		wantSucc  int
		wantCalls int
	}{
		{"unset skill rolls one die", 0, []int{5}, 1, 0, 1},
		{"no tens", 3, []int{2, 3, 4}, 3, 0, 3},
		{"chained tens", 1, []int{10, 10, 10, 4}, 4, 3, 4},
		{"two tens in pool", 2, []int{10, 10, 3, 3}, 4, 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roller := &scriptedRoller{faces: tt.faces}
			res, err := NewResolver(roller, 0).Resolve(Input{SkillLevel: tt.skill, Difficulty: 8})
			require.NoError(t, err)
			assert.Len(t, res.Dice, tt.wantDice)
			assert.Equal(t, tt.wantSucc, res.Successes)
			assert.Equal(t, tt.wantCalls, roller.calls)
		})
	}
}

func TestResolve_ExtraDicePerTen(t *testing.T) {
	// For any script, dice rolled == max(skill,1) + number of tens rolled.
	scripts := [][]int{
		{10, 1, 2, 3, 4, 5},
		{10, 10, 2, 10, 1, 1, 1},
		{9, 8, 7, 6},
		{10, 2, 10, 2, 2, 2, 2, 2},
	}
	for _, faces := range scripts {
		for skill := 0; skill <= 3; skill++ {
			roller := &scriptedRoller{faces: append(faces, 2)}
			res, err := NewResolver(roller, 0).Resolve(Input{SkillLevel: skill, Difficulty: 5})
			require.NoError(t, err)

			tens := 0
			for _, d := range res.Dice {
				if d.Face == 10 {
					tens++
				}
			}
			assert.Equal(t, PoolSize(skill)+tens, len(res.Dice), "faces %v skill %d", faces, skill)
		}
	}
}

func TestResolve_NegativeSuccesses(t *testing.T) {
	res, err := NewResolver(&scriptedRoller{faces: []int{1, 1, 1}}, 0).
		Resolve(Input{SkillLevel: 3, AttributeLevel: 9, Difficulty: 2})
	require.NoError(t, err)
	assert.Equal(t, -3, res.Successes)
}

func TestResolve_CriticalIgnoresTotal(t *testing.T) {
	// A 1 never succeeds, even when attribute and bonus would beat the difficulty.
	res, err := NewResolver(&scriptedRoller{faces: []int{1}}, 0).
		Resolve(Input{SkillLevel: 1, AttributeLevel: 10, Bonus: 5, Difficulty: 3})
	require.NoError(t, err)
	assert.Equal(t, 16, res.Dice[0].Total)
	assert.Equal(t, -1, res.Successes)
}

func TestResolve_Cap(t *testing.T) {
	roller := &scriptedRoller{faces: []int{10}}
	res, err := NewResolver(roller, 25).Resolve(Input{SkillLevel: 1, Difficulty: 1})
	require.NoError(t, err)

	assert.True(t, res.Capped)
	assert.Len(t, res.Dice, 25)
	assert.Equal(t, 25, res.Successes)
}

func TestResolve_RollerError(t *testing.T) {
	_, err := NewResolver(&scriptedRoller{err: errors.New("boom")}, 0).Resolve(Input{SkillLevel: 1})
	assert.Error(t, err)
}

func TestResolve_RollerOutOfRange(t *testing.T) {
	_, err := NewResolver(&scriptedRoller{faces: []int{11}}, 0).Resolve(Input{SkillLevel: 1})
	assert.Error(t, err)
}

func TestResolve_DefaultRoller(t *testing.T) {
	res, err := NewResolver(nil, 0).Resolve(Input{SkillLevel: 4, AttributeLevel: 2, Difficulty: 9})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(res.Dice), 4)
	for _, d := range res.Dice {
		assert.GreaterOrEqual(t, d.Face, 1)
		assert.LessOrEqual(t, d.Face, 10)
	}
}

func TestResolveRequest(t *testing.T) {
	p := &actor.Player{
		Foci: map[actor.FocusName]actor.Focus{
			actor.FocusPhysical: {
				Attributes: map[string]int{"strength": 3},
				Skills:     map[string]int{"athletics": 2},
			},
			actor.FocusMental: {
				Attributes: map[string]int{"wits": 1},
				Skills:     map[string]int{"lore": 0},
			},
		},
	}
	req := Request{
		Skill:       "athletics",
		Attribute:   "strength",
		Difficulty:  8,
		Bonus:       &Bonus{Narrative: 1, Effort: 1},
		Alternative: &Check{Skill: "lore", Attribute: "wits"},
	}

	t.Run("primary check", func(t *testing.T) {
		roller := &scriptedRoller{faces: []int{5, 6}}
		res, used, err := NewResolver(roller, 0).ResolveRequest(p, req, false)
		require.NoError(t, err)
		assert.Equal(t, "athletics", used.Skill)
		assert.Len(t, res.Dice, 2)
		assert.Equal(t, 10, res.Dice[0].Total)
		assert.Equal(t, 11, res.Dice[1].Total)
		assert.Equal(t, 2, res.Successes, "both totals clear difficulty 8")
	})

	t.Run("alternative check", func(t *testing.T) {
		roller := &scriptedRoller{faces: []int{5}}
		res, used, err := NewResolver(roller, 0).ResolveRequest(p, req, true)
		require.NoError(t, err)
		assert.Equal(t, "lore", used.Skill)
		assert.Equal(t, "wits", used.Attribute)
		assert.Len(t, res.Dice, 1, "skill 0 still rolls one die")
		assert.Equal(t, 8, res.Dice[0].Total)
	})

	t.Run("alternative requested but missing", func(t *testing.T) {
		plain := req
		plain.Alternative = nil
		_, used, err := NewResolver(&scriptedRoller{faces: []int{5}}, 0).ResolveRequest(p, plain, true)
		require.NoError(t, err)
		assert.Equal(t, "athletics", used.Skill)
	})
}

func TestDie_String(t *testing.T) {
	tests := []struct {
		name string
		die  Die
		want string
	}{
		{
			name: "exploded success",
			die:  Die{Index: 1, Face: 10, Resolved: 15, Attribute: 3, Bonus: 0, Total: 18, Success: true, Exploded: true},
			want: "#1! = 10(15) + 3 + 0 = 18 [✓]",
		},
		{
			name: "plain failure",
			die:  Die{Index: 2, Face: 4, Resolved: 4, Attribute: 1, Bonus: 2, Total: 7},
			want: "#2 = 4(4) + 1 + 2 = 7 [✗]",
		},
		{
			name: "critical",
			die:  Die{Index: 3, Face: 1, Resolved: 1, Attribute: 3, Total: 4, Critical: true},
			want: "#3 = 1(1) + 3 + 0 = 4 [✗ -1]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.die.String())
		})
	}
}

func TestResult_Report(t *testing.T) {
	res, err := NewResolver(&scriptedRoller{faces: []int{10, 9, 1}}, 0).
		Resolve(Input{SkillLevel: 2, AttributeLevel: 3, Difficulty: 8})
	require.NoError(t, err)

	report := res.Report(Request{Skill: "athletics", Attribute: "strength", Difficulty: 8})
	assert.Equal(t, "athletics + strength vs 8: 1 success\n"+
		"#1! = 10(15) + 3 + 0 = 18 [✓]\n"+
		"#2 = 9(9) + 3 + 0 = 12 [✓]\n"+
		"#3 = 1(1) + 3 + 0 = 4 [✗ -1]", report)
}

func TestSuccessPhrase(t *testing.T) {
	assert.Equal(t, "1 success", SuccessPhrase(1))
	assert.Equal(t, "-1 success", SuccessPhrase(-1))
	assert.Equal(t, "0 successes", SuccessPhrase(0))
	assert.Equal(t, "3 successes", SuccessPhrase(3))
}

func TestRequest_SwapAndClone(t *testing.T) {
	req := &Request{Skill: "a", Attribute: "b", Difficulty: 6, Bonus: &Bonus{Effort: 2}, Alternative: &Check{Skill: "c", Attribute: "d"}}

	swapped := req.Swap(true)
	assert.Equal(t, "c", swapped.Skill)
	assert.Equal(t, "d", swapped.Attribute)
	assert.Equal(t, 6, swapped.Difficulty)
	assert.Equal(t, "a", req.Skill)

	cp := req.Clone()
	cp.Bonus.Effort = 9
	cp.Alternative.Skill = "z"
	assert.Equal(t, 2, req.Bonus.Effort)
	assert.Equal(t, "c", req.Alternative.Skill)

	var nilReq *Request
	assert.Nil(t, nilReq.Clone())

	var noBonus *Bonus
	assert.Equal(t, 0, noBonus.Total())
	assert.Equal(t, 0, (&Request{Skill: "a"}).Bonus.Total())
}
