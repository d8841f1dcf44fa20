package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/tahfidz-admin-api/pkg/config"
)

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "tahfidz", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=tahfidz sslmode=disable", DSN(cfg))

	cfg.TimeZone = "Asia/Jakarta"
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=tahfidz sslmode=disable timezone=Asia/Jakarta", DSN(cfg))
}
