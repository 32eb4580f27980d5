package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *HedgerConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Gateway.BaseURL == "" {
		return errors.New("gateway.base_url is required")
	}
	if c.Gateway.AccountID == "" {
		return errors.New("gateway.account_id is required")
	}
	if c.Gateway.RateLimit < 1 {
		return errors.New("gateway.rate_limit must be >= 1")
	}
	if c.Gateway.MaxRetries < 0 {
		return errors.New("gateway.max_retries must be >= 0")
	}

	if len(c.Strategy.Symbols) == 0 {
		return errors.New("strategy.symbols must not be empty")
	}
	if c.Strategy.MarginCushion < 0 || c.Strategy.MarginCushion >= 1 {
		return fmt.Errorf("strategy.margin_cushion must be in [0, 1), got %g", c.Strategy.MarginCushion)
	}
	if c.Strategy.RiskReducer <= 0 || c.Strategy.RiskReducer > 1 {
		return fmt.Errorf("strategy.risk_reducer must be in (0, 1], got %g", c.Strategy.RiskReducer)
	}
	if c.Strategy.VolumeScalar <= 0 {
		return errors.New("strategy.volume_scalar must be > 0")
	}
	if c.Strategy.TopPairs < 1 {
		return errors.New("strategy.top_pairs must be >= 1")
	}

	if c.Risk.Confidence <= 0 || c.Risk.Confidence >= 1 {
		return fmt.Errorf("risk.confidence must be in (0, 1), got %g", c.Risk.Confidence)
	}
	if c.Risk.Percentile <= 0 || c.Risk.Percentile > 100 {
		return fmt.Errorf("risk.percentile must be in (0, 100], got %g", c.Risk.Percentile)
	}

	if c.Orders.ActiveLimit < 1 {
		return errors.New("orders.active_limit must be >= 1")
	}
	if c.Orders.PendingCancelAt > c.Orders.ActiveLimit {
		return fmt.Errorf("orders.pending_cancel_at (%d) cannot exceed active_limit (%d)",
			c.Orders.PendingCancelAt, c.Orders.ActiveLimit)
	}

	if c.Engine.Interval <= 0 {
		return errors.New("engine.interval must be > 0")
	}
	if c.Engine.Concurrency < 1 {
		return errors.New("engine.concurrency must be >= 1")
	}

	if c.Database.Enabled {
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
		if c.Database.Writer.BatchSize < 1 {
			return errors.New("database.writer.batch_size must be >= 1")
		}
		if c.Database.Writer.BufferSize < 1 {
			return errors.New("database.writer.buffer_size must be >= 1")
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
