package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{1, "groups and players", `
		CREATE TABLE IF NOT EXISTS groups (
			chat_id BIGINT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			default_language VARCHAR(2) NOT NULL DEFAULT 'en' CHECK (default_language IN ('en', 'fa')),
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS players (
			chat_id BIGINT NOT NULL REFERENCES groups(chat_id),
			user_id BIGINT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			username TEXT,
			language VARCHAR(2) CHECK (language IN ('en', 'fa')),
			medals BIGINT NOT NULL DEFAULT 0 CHECK (medals >= 0),
			stars BIGINT NOT NULL DEFAULT 0 CHECK (stars >= 0),
			score BIGINT NOT NULL DEFAULT 0 CHECK (score >= 0),
			level INT NOT NULL DEFAULT 1 CHECK (level >= 1),
			hp INT NOT NULL DEFAULT 100 CHECK (hp >= 0),
			max_hp INT NOT NULL DEFAULT 100 CHECK (max_hp BETWEEN 50 AND 200),
			total_attacks BIGINT NOT NULL DEFAULT 0,
			total_damage_dealt BIGINT NOT NULL DEFAULT 0,
			times_attacked BIGINT NOT NULL DEFAULT 0,
			damage_taken BIGINT NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL,
			last_active BIGINT NOT NULL,
			PRIMARY KEY (chat_id, user_id),
			CONSTRAINT players_hp_le_max CHECK (hp <= max_hp)
		);
		CREATE INDEX IF NOT EXISTS idx_players_chat_score ON players(chat_id, score DESC);
		CREATE INDEX IF NOT EXISTS idx_players_chat_username ON players(chat_id, lower(username));
	`},
	{2, "inventory and cooldowns", `
		CREATE TABLE IF NOT EXISTS inventory (
			chat_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			item_id VARCHAR(64) NOT NULL,
			qty INT NOT NULL DEFAULT 0 CHECK (qty >= 0),
			updated_at BIGINT NOT NULL,
			PRIMARY KEY (chat_id, user_id, item_id),
			FOREIGN KEY (chat_id, user_id) REFERENCES players(chat_id, user_id)
		);

		CREATE TABLE IF NOT EXISTS cooldowns (
			chat_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			action VARCHAR(64) NOT NULL,
			created_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			PRIMARY KEY (chat_id, user_id, action),
			CONSTRAINT cooldowns_expiry CHECK (expires_at > created_at)
		);
		CREATE INDEX IF NOT EXISTS idx_cooldowns_expiry ON cooldowns(chat_id, user_id, expires_at);
		CREATE INDEX IF NOT EXISTS idx_cooldowns_expires_at ON cooldowns(expires_at);
	`},
	{3, "active effects", `
		CREATE TABLE IF NOT EXISTS active_defenses (
			chat_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			defense_type VARCHAR(16) NOT NULL CHECK (defense_type IN ('shield', 'intercept')),
			item_id VARCHAR(64) NOT NULL,
			activated_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			effectiveness DOUBLE PRECISION NOT NULL DEFAULT 1 CHECK (effectiveness > 0 AND effectiveness <= 1),
			intercept_bonus INT NOT NULL DEFAULT 0 CHECK (intercept_bonus >= 0),
			absorption_left INT NOT NULL DEFAULT 0 CHECK (absorption_left >= 0),
			PRIMARY KEY (chat_id, user_id),
			CONSTRAINT active_defenses_expiry CHECK (expires_at > activated_at)
		);
		CREATE INDEX IF NOT EXISTS idx_active_defenses_expiry ON active_defenses(chat_id, user_id, expires_at);

		CREATE TABLE IF NOT EXISTS active_boosts (
			chat_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			boost_type VARCHAR(32) NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			activated_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			PRIMARY KEY (chat_id, user_id, boost_type),
			CONSTRAINT active_boosts_expiry CHECK (expires_at > activated_at)
		);
		CREATE INDEX IF NOT EXISTS idx_active_boosts_expiry ON active_boosts(chat_id, user_id, expires_at);
	`},
	{4, "attack log and counters trigger", `
		CREATE TABLE IF NOT EXISTS attacks (
			id BIGSERIAL PRIMARY KEY,
			chat_id BIGINT NOT NULL,
			attacker_id BIGINT NOT NULL,
			victim_id BIGINT NOT NULL,
			weapon_id VARCHAR(64) NOT NULL,
			damage INT NOT NULL CHECK (damage > 0),
			is_critical BOOLEAN NOT NULL DEFAULT FALSE,
			defense_reduced BOOLEAN NOT NULL DEFAULT FALSE,
			attack_time BIGINT NOT NULL,
			CONSTRAINT attacks_not_self CHECK (attacker_id <> victim_id),
			FOREIGN KEY (chat_id, attacker_id) REFERENCES players(chat_id, user_id),
			FOREIGN KEY (chat_id, victim_id) REFERENCES players(chat_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_attacks_chat_time ON attacks(chat_id, attack_time DESC);
		CREATE INDEX IF NOT EXISTS idx_attacks_chat_attacker ON attacks(chat_id, attacker_id);
		CREATE INDEX IF NOT EXISTS idx_attacks_chat_victim ON attacks(chat_id, victim_id);

		CREATE OR REPLACE FUNCTION apply_attack_counters() RETURNS TRIGGER AS $$
		BEGIN
			UPDATE players
			SET total_attacks = total_attacks + 1,
				total_damage_dealt = total_damage_dealt + NEW.damage
			WHERE chat_id = NEW.chat_id AND user_id = NEW.attacker_id;

			UPDATE players
			SET times_attacked = times_attacked + 1,
				damage_taken = damage_taken + NEW.damage
			WHERE chat_id = NEW.chat_id AND user_id = NEW.victim_id;
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql;

		DROP TRIGGER IF EXISTS trg_attacks_counters ON attacks;
		CREATE TRIGGER trg_attacks_counters
			AFTER INSERT ON attacks
			FOR EACH ROW EXECUTE FUNCTION apply_attack_counters();
	`},
	{5, "purchases", `
		CREATE TABLE IF NOT EXISTS purchases (
			id BIGSERIAL PRIMARY KEY,
			chat_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			item_id VARCHAR(64) NOT NULL,
			price BIGINT NOT NULL CHECK (price >= 0),
			purchased_at BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_purchases_user ON purchases(chat_id, user_id, purchased_at DESC);

		CREATE TABLE IF NOT EXISTS stars_purchases (
			id BIGSERIAL PRIMARY KEY,
			chat_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			item_id VARCHAR(64) NOT NULL,
			stars BIGINT NOT NULL CHECK (stars >= 0),
			payment_id TEXT NOT NULL,
			status VARCHAR(16) NOT NULL CHECK (status IN ('pending', 'completed', 'failed', 'refunded')),
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			CONSTRAINT stars_purchases_payment_id_key UNIQUE (payment_id)
		);
		CREATE INDEX IF NOT EXISTS idx_stars_purchases_user ON stars_purchases(chat_id, user_id);
	`},
}

// Migrate applies every pending schema version inside its own transaction.
func Migrate(ctx context.Context, p *Pool) error {
	log.Info().Msg("Running database migrations...")

	if _, err := p.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := Scalar[bool](ctx, p,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.version)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.version, err)
		}
		if applied {
			continue
		}

		err = pgx.BeginFunc(ctx, p.Pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.sql); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
		log.Info().Int("version", m.version).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
