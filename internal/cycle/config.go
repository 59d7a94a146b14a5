package cycle

import (
	"errors"
	"time"
)

// Config описывает периодический цикл анализа
type Config struct {
	Port      string
	Interval  time.Duration
	Timeout   time.Duration
	Retention time.Duration
}

// Validate проверяет параметры цикла
func (c Config) Validate() error {
	if c.Interval < 5*time.Second {
		return errors.New("cycle interval must be >= 5s")
	}
	if c.Timeout <= 0 {
		return errors.New("cycle timeout must be positive")
	}
	if c.Timeout >= c.Interval {
		return errors.New("cycle timeout must be shorter than the interval")
	}
	if c.Retention < 0 {
		return errors.New("cycle retention cannot be negative")
	}
	return nil
}
