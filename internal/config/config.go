package config

import "sync"

type Driver interface {
	Exists() (bool, error)
	Write(config Config) error
	Read() (Config, error)
}

func NewStore(driver Driver) (Store, error) {
	exists, err := driver.Exists()
	if err != nil {
		return Store{}, err
	}
	if !exists {
		if err := driver.Write(DefaultConfig()); err != nil {
			return Store{}, err
		}
	}

	return Store{
		mu:     &sync.Mutex{},
		driver: driver,
	}, nil
}

type Store struct {
	mu     *sync.Mutex
	driver Driver
}

func (p Store) GetConfig() (Config, error) {
	return p.driver.Read()
}

// UpdateConfig writes and returns the config returned by fn. Updates are
// serialized.
func (p Store) UpdateConfig(fn func(cfg Config) (Config, error)) (Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg, err := p.driver.Read()
	if err != nil {
		return Config{}, err
	}

	cfg, err = fn(cfg)
	if err != nil {
		return Config{}, err
	}

	if err := p.driver.Write(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
