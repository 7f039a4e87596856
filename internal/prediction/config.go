package prediction

import (
	"time"

	"codeberg.org/mutker/dcrmctl/internal/errors"
)

const defaultDelay = 1500 * time.Millisecond

type Config struct {
	Delay time.Duration
}

func DefaultConfig() Config {
	return Config{
		Delay: defaultDelay,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.Delay < 0 {
		return errFactory.WithData(ErrInvalidDelay, c.Delay.String())
	}
	return nil
}
