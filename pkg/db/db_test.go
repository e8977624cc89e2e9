package db

import (
	"net/url"
	"testing"

	"carecircle/pkg/config"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.DBConfig
		wantSSL  string
		wantPass string
	}{
		{"defaults to sslmode disable", config.DBConfig{Host: "db", Port: 5432, User: "care", Password: "pw", Name: "carecircle"}, "disable", "pw"},
		{"keeps configured sslmode", config.DBConfig{Host: "db", Port: 5432, User: "care", Password: "pw", Name: "carecircle", SSLMode: "require"}, "require", "pw"},
		{"escapes password", config.DBConfig{Host: "db", Port: 5432, User: "care", Password: "p@ss/w:rd?", Name: "carecircle"}, "disable", "p@ss/w:rd?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(DSN(tt.cfg, "carecircle"))
			if err != nil {
				t.Fatalf("DSN not parseable: %v", err)
			}
			if u.Host != "db:5432" || u.Path != "/carecircle" {
				t.Errorf("host/path = %s %s", u.Host, u.Path)
			}
			if pw, _ := u.User.Password(); pw != tt.wantPass {
				t.Errorf("password = %q, want %q", pw, tt.wantPass)
			}
			if got := u.Query().Get("sslmode"); got != tt.wantSSL {
				t.Errorf("sslmode = %q, want %q", got, tt.wantSSL)
			}
			if got := u.Query().Get("application_name"); got != "carecircle" {
				t.Errorf("application_name = %q", got)
			}
		})
	}
}
