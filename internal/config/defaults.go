package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.ResourcesPath == "" {
		cfg.Storage.ResourcesPath = "/usr/local/var/kura/resources"
	}
	if cfg.Storage.AnalyticsDBPath == "" {
		cfg.Storage.AnalyticsDBPath = "/usr/local/var/kura/analytics.db"
	}
	if cfg.Resources.ExpiryHours == 0 {
		cfg.Resources.ExpiryHours = 24
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.FuzzyThreshold == 0 {
		cfg.Search.FuzzyThreshold = 0.6
	}
}
