package combat

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"missile-bot/internal/catalog"
	"missile-bot/internal/game/progression"
	"missile-bot/internal/metrics"
	"missile-bot/internal/model"
	"missile-bot/internal/pkg/clock"
	"missile-bot/internal/pkg/db"
	"missile-bot/internal/pkg/lock"
	"missile-bot/internal/repository"
)

// Config holds the tunable combat rules.
type Config struct {
	BaseHitChance          int
	AttackCooldown         time.Duration
	RespawnHP              int
	DefeatBonus            int64
	DefaultWeapon          string
	UnlimitedDefaultWeapon bool
	BotUserID              int64
	LockTimeout            time.Duration
}

// Deps are the collaborators of the combat service.
type Deps struct {
	Pool    *db.Pool
	Clock   clock.Clock
	Catalog *catalog.Catalog
	Dice    Dice
	Locks   *lock.PlayerLock
	Metrics *metrics.Metrics
}

// Service runs attacks as single transactions.
type Service struct {
	pool    *db.Pool
	clock   clock.Clock
	catalog *catalog.Catalog
	dice    Dice
	locks   *lock.PlayerLock
	metrics *metrics.Metrics
	cfg     Config
}

// NewService creates a new combat Service.
func NewService(deps Deps, cfg Config) *Service {
	if deps.Dice == nil {
		deps.Dice = NewRandomDice()
	}
	if deps.Locks == nil {
		deps.Locks = lock.New()
	}
	return &Service{
		pool:    deps.Pool,
		clock:   deps.Clock,
		catalog: deps.Catalog,
		dice:    deps.Dice,
		locks:   deps.Locks,
		metrics: deps.Metrics,
		cfg:     cfg,
	}
}

// DefaultWeapon returns the weapon used when an attack names none.
func (s *Service) DefaultWeapon() string {
	return s.cfg.DefaultWeapon
}

// CooldownSeconds shortens the base cooldown by a cooldown_reduction boost
// value in [0, 1]. The result is at least one second.
func CooldownSeconds(base time.Duration, reduction float64) int64 {
	if reduction < 0 {
		reduction = 0
	}
	if reduction > 1 {
		reduction = 1
	}
	secs := int64(math.Ceil(base.Seconds() * (1 - reduction)))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (s *Service) unlimited(weaponID string) bool {
	return s.cfg.UnlimitedDefaultWeapon && weaponID == s.cfg.DefaultWeapon
}

// Attack resolves one attack of attacker on target with weaponID (the default
// weapon when empty). Everything it changes commits in one transaction:
// balances, hp, score, level, the weapon stock, the absorption pool, the
// attack record and the attacker's cooldown.
func (s *Service) Attack(ctx context.Context, chatID, attackerID, targetID int64, weaponID string) (*Outcome, error) {
	if weaponID == "" {
		weaponID = s.cfg.DefaultWeapon
	}
	if targetID == attackerID || (s.cfg.BotUserID != 0 && targetID == s.cfg.BotUserID) || targetID == 0 {
		return nil, model.ErrIneligibleTarget
	}
	weapon, err := s.catalog.Lookup(weaponID)
	if err != nil {
		return nil, err
	}
	if weapon.Kind != catalog.KindWeapon {
		return nil, &model.DisallowedError{ItemID: weaponID, Reason: model.ReasonNotUsable}
	}

	unlock, err := s.locks.Lock(ctx, s.cfg.LockTimeout,
		lock.Key{ChatID: chatID, UserID: attackerID},
		lock.Key{ChatID: chatID, UserID: targetID},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConflict, err)
	}
	defer unlock()

	var out Outcome
	err = s.pool.RunInTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		out, txErr = s.attackTx(ctx, repository.New(tx), chatID, attackerID, targetID, weapon)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Attack(string(out.Result))
	log.Debug().
		Int64("chat_id", chatID).
		Int64("user_id", attackerID).
		Int64("target_id", targetID).
		Str("item_id", weaponID).
		Str("result", string(out.Result)).
		Int("damage", out.FinalDamage).
		Int64("loot", out.Loot).
		Msg("Attack resolved")
	return &out, nil
}

func (s *Service) attackTx(ctx context.Context, r *repository.Repos, chatID, attackerID, targetID int64, weapon catalog.Item) (Outcome, error) {
	players, err := r.Players.LockMany(ctx, chatID, attackerID, targetID)
	if err != nil {
		return Outcome{}, err
	}
	attacker, ok := players[attackerID]
	if !ok {
		return Outcome{}, model.ErrNotRegistered
	}
	target, ok := players[targetID]
	if !ok {
		return Outcome{}, model.ErrIneligibleTarget
	}

	now := s.clock.Now()

	exp, err := r.Cooldowns.ExpiresAt(ctx, chatID, attackerID, model.ActionAttack, now)
	if err != nil {
		return Outcome{}, err
	}
	if exp > 0 {
		return Outcome{}, &model.CooldownError{Action: model.ActionAttack, Remaining: exp - now}
	}

	unlimited := s.unlimited(weapon.ID)
	if !unlimited {
		qty, err := r.Inventory.Qty(ctx, chatID, attackerID, weapon.ID)
		if err != nil {
			return Outcome{}, err
		}
		if qty < 1 {
			return Outcome{}, model.ErrNoWeapon
		}
	}

	defense, err := r.Effects.ActiveDefense(ctx, chatID, targetID, now)
	if err != nil {
		return Outcome{}, err
	}
	xpMultiplier := 1.0
	if b, err := r.Effects.Boost(ctx, chatID, attackerID, model.BoostExperience, now); err != nil {
		return Outcome{}, err
	} else if b != nil {
		xpMultiplier = b.Value
	}

	out := Resolve(Input{
		Weapon:               weapon,
		AttackerLevel:        attacker.Level,
		TargetMedals:         target.Medals,
		TargetHP:             target.HP,
		TargetMaxHP:          target.MaxHP,
		Defense:              defense,
		BaseHitChance:        s.cfg.BaseHitChance,
		ExperienceMultiplier: xpMultiplier,
		RespawnHP:            s.cfg.RespawnHP,
		DefeatBonus:          s.cfg.DefeatBonus,
	}, s.dice)
	out.WeaponID = weapon.ID

	if out.Result != ResultBlocked && !unlimited {
		if _, ok, err := r.Inventory.Consume(ctx, chatID, attackerID, weapon.ID, 1, now); err != nil {
			return Outcome{}, err
		} else if !ok {
			return Outcome{}, model.ErrNoWeapon
		}
		out.WeaponConsumed = true
	}

	prevLevel := attacker.Level
	attacker.LastActive = now
	if out.Result == ResultHit {
		target.Medals = out.TargetMedalsAfter
		target.HP = out.TargetHPAfter
		if err := r.Players.Save(ctx, target); err != nil {
			return Outcome{}, err
		}

		attacker.Medals += out.Loot + out.DefeatBonus
		attacker.Score += out.ScoreGain
		attacker.Level = progression.LevelFor(attacker.Score)

		if out.Absorbed > 0 {
			if err := r.Effects.SetAbsorption(ctx, chatID, targetID, defense.AbsorptionLeft-out.Absorbed); err != nil {
				return Outcome{}, err
			}
		}

		rec := &model.AttackRecord{
			ChatID:         chatID,
			AttackerID:     attackerID,
			VictimID:       targetID,
			WeaponID:       weapon.ID,
			Damage:         out.FinalDamage,
			IsCritical:     out.Critical,
			DefenseReduced: out.DefenseReduced,
			AttackTime:     now,
		}
		if out.AttackID, err = r.Attacks.Insert(ctx, rec); err != nil {
			return Outcome{}, err
		}
	}
	if err := r.Players.Save(ctx, attacker); err != nil {
		return Outcome{}, err
	}
	out.AttackerMedals = attacker.Medals
	out.AttackerLevel = attacker.Level
	out.LevelUp = attacker.Level > prevLevel

	reduction := 0.0
	if b, err := r.Effects.Boost(ctx, chatID, attackerID, model.BoostCooldownReduction, now); err != nil {
		return Outcome{}, err
	} else if b != nil {
		reduction = b.Value
	}
	secs := CooldownSeconds(s.cfg.AttackCooldown, reduction)
	if err := r.Cooldowns.Set(ctx, chatID, attackerID, model.ActionAttack, now, now+secs); err != nil {
		return Outcome{}, err
	}
	out.CooldownRemaining = secs
	return out, nil
}
