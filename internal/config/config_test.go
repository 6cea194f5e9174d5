package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	p := writeFile(t, `
service:
  name: kitchen-service
  port: 9090
database:
  host: db
  database: kitchen
kitchen:
  prep_delay: 2s
delivery:
  drivers:
    - id: D-1
      name: Ann
      available: true
`)

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "kitchen-service", cfg.Service.Name)
	assert.Equal(t, 9090, cfg.Service.Port)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port, "unset fields keep defaults")
	assert.Equal(t, 2*time.Second, cfg.Kitchen.PrepDelay)
	assert.Equal(t, []Driver{{ID: "D-1", Name: "Ann", Available: true}}, cfg.Delivery.Drivers)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	p := writeFile(t, "database:\n  host: db\n  database: orders\n")
	t.Setenv("DB_HOST", "pg.internal")
	t.Setenv("PORT", "7000")
	t.Setenv("KITCHEN_PREP_DELAY", "150ms")
	t.Setenv("RABBITMQ_MAX_RETRIES", "not-a-number")

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "pg.internal", cfg.Database.Host)
	assert.Equal(t, 7000, cfg.Service.Port)
	assert.Equal(t, 150*time.Millisecond, cfg.Kitchen.PrepDelay)
	assert.Equal(t, 5, cfg.RabbitMQ.MaxRetries, "invalid env values fall back")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "service: [oops"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Service.Name = "order-service"
	valid.Service.Port = 8080
	valid.Database.Database = "orders"
	require.NoError(t, valid.Validate())

	tests := map[string]func(c *Config){
		"missing name":     func(c *Config) { c.Service.Name = "" },
		"bad port":         func(c *Config) { c.Service.Port = 70000 },
		"missing database": func(c *Config) { c.Database.Database = "" },
		"missing rabbit":   func(c *Config) { c.RabbitMQ.Host = "" },
		"negative retries": func(c *Config) { c.RabbitMQ.MaxRetries = -1 },
		"transit window":   func(c *Config) { c.Delivery.TransitMax = c.Delivery.TransitMin - time.Second },
		"eta window":       func(c *Config) { c.Delivery.ETAMax = 0 },
		"poll interval":    func(c *Config) { c.Scheduler.PollInterval = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid
			c.Delivery.Drivers = append([]Driver(nil), valid.Delivery.Drivers...)
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load("../../deploy/config.example.yaml")
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.RabbitMQ.RetryDelay)
	assert.Equal(t, 10*time.Second, cfg.Delivery.TransitMax)
	assert.Equal(t, 30*time.Minute, cfg.Delivery.ETAMax)
	require.Len(t, cfg.Delivery.Drivers, 3)
	assert.False(t, cfg.Delivery.Drivers[2].Available)

	cfg.Service.Name = "order-service"
	cfg.Service.Port = DefaultPorts["order-service"]
	cfg.Database.Database = "orders"
	assert.NoError(t, cfg.Validate())
}
