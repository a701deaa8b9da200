package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Index.Dir == "" {
		cfg.Index.Dir = "/usr/local/var/kiroku/index"
	}
	if cfg.Index.CacheDir == "" {
		cfg.Index.CacheDir = "/usr/local/var/kiroku/cache"
	}
}
