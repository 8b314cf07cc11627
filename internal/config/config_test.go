package config

import "testing"

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		access  string
		refresh string
		wantErr bool
	}{
		{"both set", "access-secret", "refresh-secret", false},
		{"missing access secret", "", "refresh-secret", true},
		{"missing refresh secret", "access-secret", "", true},
		{"identical secrets", "same-secret", "same-secret", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				AccessTokenSecret:  tt.access,
				RefreshTokenSecret: tt.refresh,
			}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_ADDR", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("REFRESH_TOKEN_SECRET", "")

	cfg := Load()

	if cfg.ServerAddr != ":5000" {
		t.Errorf("expected default server addr :5000, got %s", cfg.ServerAddr)
	}
	if cfg.AccessTokenSecret != "" {
		t.Error("access token secret must not have a default")
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation failure without secrets")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-access")
	t.Setenv("REFRESH_TOKEN_SECRET", "env-refresh")
	t.Setenv("DB_NAME", "devfolio_test")

	cfg := Load()

	if cfg.AccessTokenSecret != "env-access" {
		t.Errorf("expected env access secret, got %s", cfg.AccessTokenSecret)
	}
	if cfg.DBName != "devfolio_test" {
		t.Errorf("expected env db name, got %s", cfg.DBName)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}
