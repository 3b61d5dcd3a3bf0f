package app

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/gradebook/internal/gradebook"
)

type HeaderConfig struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

// ExportConfig mirrors the gradebook of one class into a Google Sheet.
type ExportConfig struct {
	Name            string `toml:"name"`
	CredentialsPath string `toml:"credentials_path"`
	SheetID         string `toml:"sheet_id"`
	SheetName       string `toml:"sheet_name"`
	Schedule        string `toml:"schedule"`
	TimestampRange  string `toml:"timestamp_range"`

	DistrictID   string `toml:"district_id"`
	AssignmentID string `toml:"assignment_id"`
	ClassID      string `toml:"class_id"`
	TeacherID    string `toml:"teacher_id"`
}

type Config struct {
	Server struct {
		Port string `toml:"port"`
	} `toml:"server"`

	API struct {
		UserIDHeader    string         `toml:"user_id_header"`
		UserRoleHeader  string         `toml:"user_role_header"`
		RequiredHeaders []HeaderConfig `toml:"required_headers"`
	} `toml:"api"`

	Database struct {
		DSN           string `toml:"dsn"`
		Name          string `toml:"name"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`

	Auth struct {
		Enabled          bool   `toml:"enabled"`
		RedisURL         string `toml:"redis_url"`
		TokenHeader      string `toml:"token_header"`
		TokenKeyTemplate string `toml:"token_key_template"`
	} `toml:"auth"`

	Notify struct {
		RedisURL string `toml:"redis_url"`
	} `toml:"notify"`

	Secrets struct {
		PasswordKey string `toml:"password_key"`
	} `toml:"secrets"`

	Bot struct {
		Token    string  `toml:"token"`
		AdminIDs []int64 `toml:"admin_ids"`
	} `toml:"bot"`

	Gradebook gradebook.Config `toml:"gradebook"`

	Export []ExportConfig `toml:"export"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := Config{Gradebook: gradebook.DefaultConfig()}
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf(
			"error reading config file %s\n> Error: %w\n> Content:\n%s",
			path,
			err,
			string(data),
		)
	}

	if config.Server.Port == "" {
		return nil, fmt.Errorf("Server port is not specified in config, use a value like :9999")
	}
	if config.Database.DSN == "" {
		return nil, fmt.Errorf("Database dsn is not specified in config")
	}
	if config.API.UserIDHeader == "" {
		config.API.UserIDHeader = "X-User-Id"
	}
	if config.API.UserRoleHeader == "" {
		config.API.UserRoleHeader = "X-User-Role"
	}
	if config.Auth.Enabled {
		if config.Auth.RedisURL == "" {
			config.Auth.RedisURL = config.Notify.RedisURL
		}
		if config.Auth.RedisURL == "" {
			return nil, fmt.Errorf("Auth is enabled but no redis_url is configured")
		}
		if config.Auth.TokenHeader == "" {
			config.Auth.TokenHeader = "X-Gradebook-Token"
		}
		if config.Auth.TokenKeyTemplate == "" {
			config.Auth.TokenKeyTemplate = "auth:{user}"
		}
	}
	if config.Database.MigrationsDir == "" {
		config.Database.MigrationsDir = "./migrations"
	}

	for _, e := range config.Export {
		if e.SheetID == "" || e.AssignmentID == "" || e.ClassID == "" || e.TeacherID == "" {
			return nil, fmt.Errorf("Export %q needs sheet_id, assignment_id, class_id and teacher_id", e.Name)
		}
	}

	logger.Debug.Printf("Loaded gradebook config: %+v", config.Gradebook)

	return &config, nil
}
