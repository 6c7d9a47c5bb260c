package catalog

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"missile-bot/internal/model"
)

// levelScalingStep is the damage bonus per attacker level above 1.
const levelScalingStep = 0.05

// Catalog is an immutable item table. It is built once at startup and shared
// without synchronization.
type Catalog struct {
	items map[string]Item
	order []string
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(builtinItems())
	if err != nil {
		panic(err)
	}
	return c
}

// New validates items and builds a catalog from them.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{items: make(map[string]Item, len(items))}
	for _, it := range items {
		if err := validate(it); err != nil {
			return nil, err
		}
		if _, dup := c.items[it.ID]; dup {
			return nil, fmt.Errorf("duplicate item id %q", it.ID)
		}
		c.items[it.ID] = it
		c.order = append(c.order, it.ID)
	}
	return c, nil
}

func validate(it Item) error {
	if it.ID == "" {
		return errors.New("item id is required")
	}
	if it.Tier < 1 || it.Tier > 5 {
		return fmt.Errorf("item %q: tier must be within [1, 5]", it.ID)
	}
	if it.Price < 0 || it.MaxStack < 0 || it.LevelRequired < 0 {
		return fmt.Errorf("item %q: price, max_stack and level_required must be non-negative", it.ID)
	}
	switch it.Payment {
	case PaymentMedals, PaymentStars, PaymentFree, PaymentAchievement:
	default:
		return fmt.Errorf("item %q: unknown payment %q", it.ID, it.Payment)
	}

	switch it.Kind {
	case KindWeapon:
		if it.Weapon == nil || it.Defense != nil || it.Effect != nil {
			return fmt.Errorf("item %q: weapon items carry only a weapon payload", it.ID)
		}
		if it.Weapon.Damage <= 0 || it.Weapon.CriticalChance < 0 || it.Weapon.CriticalChance > 100 {
			return fmt.Errorf("item %q: invalid weapon stats", it.ID)
		}
	case KindShield, KindIntercept:
		if it.Defense == nil || it.Weapon != nil || it.Effect != nil {
			return fmt.Errorf("item %q: defense items carry only a defense payload", it.ID)
		}
		d := it.Defense
		if d.DurationSeconds <= 0 || d.Effectiveness <= 0 || d.Effectiveness > 1 || d.Absorption < 0 || d.InterceptBonus < 0 {
			return fmt.Errorf("item %q: invalid defense stats", it.ID)
		}
	case KindBoost, KindUtility, KindStatus, KindArsenal:
		if it.Effect == nil || it.Weapon != nil || it.Defense != nil {
			return fmt.Errorf("item %q: %s items carry only an effect payload", it.ID, it.Kind)
		}
		e := it.Effect
		if e.CooldownReduction < 0 || e.CooldownReduction > 1 {
			return fmt.Errorf("item %q: cooldown_reduction must be within [0, 1]", it.ID)
		}
		if e.ExperienceMultiplier != 0 && e.ExperienceMultiplier < 1 {
			return fmt.Errorf("item %q: experience_multiplier must be >= 1", it.ID)
		}
		if it.Kind == KindBoost && e.DurationSeconds <= 0 {
			return fmt.Errorf("item %q: boosts need a duration", it.ID)
		}
		if it.Kind == KindStatus && e.Days <= 0 {
			return fmt.Errorf("item %q: status items need days", it.ID)
		}
	default:
		return fmt.Errorf("item %q: unknown kind %q", it.ID, it.Kind)
	}
	return nil
}

// Get looks an item up by id.
func (c *Catalog) Get(id string) (Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// Lookup is Get returning model.ErrUnknownItem for unknown ids.
func (c *Catalog) Lookup(id string) (Item, error) {
	it, ok := c.items[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", model.ErrUnknownItem, id)
	}
	return it, nil
}

// All returns every item in declaration order.
func (c *Catalog) All() []Item {
	return c.filter(func(Item) bool { return true })
}

// ByKind returns the items of one kind.
func (c *Catalog) ByKind(k Kind) []Item {
	return c.filter(func(it Item) bool { return it.Kind == k })
}

// ByPayment returns the items obtained through one payment method.
func (c *Catalog) ByPayment(p Payment) []Item {
	return c.filter(func(it Item) bool { return it.Payment == p })
}

// ByMinLevel returns the items unlocked at the given player level.
func (c *Catalog) ByMinLevel(level int) []Item {
	return c.filter(func(it Item) bool { return it.LevelRequired <= level })
}

// Available returns the items without a time limit or achievement gate.
func (c *Catalog) Available() []Item {
	return c.filter(func(it Item) bool {
		return it.LimitedUntil == 0 && it.Achievement == "" && it.Payment != PaymentAchievement
	})
}

func (c *Catalog) filter(keep func(Item) bool) []Item {
	out := make([]Item, 0, len(c.order))
	for _, id := range c.order {
		if it := c.items[id]; keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// IDs returns all item ids sorted alphabetically.
func (c *Catalog) IDs() []string {
	ids := append([]string(nil), c.order...)
	sort.Strings(ids)
	return ids
}

// Price returns what the item costs and in which currency. Free and
// achievement items cost 0 medals.
func Price(it Item) (int64, string) {
	switch it.Payment {
	case PaymentStars:
		return it.Price, model.CurrencyStars
	case PaymentMedals:
		return it.Price, model.CurrencyMedals
	}
	return 0, model.CurrencyMedals
}

// LevelScaling is the damage multiplier for an attacker level: +5% per level above 1.
func LevelScaling(level int) float64 {
	if level < 1 {
		level = 1
	}
	return 1 + levelScalingStep*float64(level-1)
}

// ScaledDamage is base damage plus damage_bonus, scaled by attacker level, before
// criticals and defenses.
func ScaledDamage(it Item, attackerLevel int) float64 {
	if it.Weapon == nil {
		return 0
	}
	return float64(it.Weapon.Damage+it.Weapon.DamageBonus) * LevelScaling(attackerLevel)
}

// WeaponDamage is ScaledDamage rounded to whole points.
func WeaponDamage(it Item, attackerLevel int) int {
	return int(math.Round(ScaledDamage(it, attackerLevel)))
}

// ApplyDefense absorbs up to absorption points first, then reduces the rest by
// effectiveness. It returns the damage left and how much was absorbed.
func ApplyDefense(incoming float64, absorption int, effectiveness float64) (float64, int) {
	if incoming <= 0 {
		return 0, 0
	}
	absorbed := 0
	if absorption > 0 {
		absorbed = absorption
		if float64(absorbed) > incoming {
			absorbed = int(math.Floor(incoming))
		}
		incoming -= float64(absorbed)
	}
	if effectiveness < 0 {
		effectiveness = 0
	}
	if effectiveness > 1 {
		effectiveness = 1
	}
	return incoming * (1 - effectiveness), absorbed
}

// DefenseApply applies a defense item's full absorption and effectiveness to incoming damage.
func DefenseApply(it Item, incoming float64) (float64, int) {
	if it.Defense == nil {
		return incoming, 0
	}
	return ApplyDefense(incoming, it.Defense.Absorption, it.Defense.Effectiveness)
}
