package mysql

import (
	"testing"

	"DocQA/backend/go/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.MySQLConfig{Address: "db:3306", Username: "docqa", Password: "s3cret", Database: "docqa"})
	assert.Equal(t, "docqa:s3cret@tcp(db:3306)/docqa?charset=utf8mb4&parseTime=True&loc=Local", dsn)
}
