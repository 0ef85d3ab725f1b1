package config

// Default returns the default node configuration.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Persist: false,
		API: APIConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       5000,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Params: DefaultParams(),
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}
