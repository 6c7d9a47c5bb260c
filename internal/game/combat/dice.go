package combat

import (
	"math/rand/v2"
	"sync"
)

// Dice rolls a uniform integer in [1, n].
type Dice interface {
	Roll(n int) int
}

type randomDice struct{}

// NewRandomDice returns dice backed by the runtime's concurrency-safe generator.
func NewRandomDice() Dice {
	return randomDice{}
}

func (randomDice) Roll(n int) int {
	if n < 1 {
		return 1
	}
	return rand.IntN(n) + 1
}

// ScriptedDice replays fixed rolls in order. Once the script runs out every
// roll returns n, the worst outcome for "roll <= chance" checks.
type ScriptedDice struct {
	mu    sync.Mutex
	rolls []int
}

// NewScriptedDice creates dice that return rolls in order.
func NewScriptedDice(rolls ...int) *ScriptedDice {
	return &ScriptedDice{rolls: rolls}
}

func (d *ScriptedDice) Roll(n int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.rolls) == 0 {
		return n
	}
	r := d.rolls[0]
	d.rolls = d.rolls[1:]
	if r < 1 {
		r = 1
	}
	if r > n {
		r = n
	}
	return r
}

// Push appends rolls to the script.
func (d *ScriptedDice) Push(rolls ...int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rolls = append(d.rolls, rolls...)
}

// Remaining returns how many scripted rolls are left.
func (d *ScriptedDice) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rolls)
}
