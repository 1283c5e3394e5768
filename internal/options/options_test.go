package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("XAPIKATCHU_ADDR", "")
	t.Setenv("XAPIKATCHU_DB_PATH", "")
	t.Setenv("XAPIKATCHU_TABLE_PREFIX", "")
	t.Setenv("XAPIKATCHU_LOCALE", "")
	t.Setenv("XAPIKATCHU_STORE_COMPLETE_XAPI", "")
	t.Setenv("XAPIKATCHU_DEBUG", "")
	t.Setenv("XAPIKATCHU_LOG_MODE", "")

	opts := FromEnv()
	assert.Equal(t, ":8090", opts.Addr)
	assert.Equal(t, "xapikatchu.db", opts.DBPath)
	assert.Equal(t, "xapikatchu_", opts.TablePrefix)
	assert.Equal(t, "en-US", opts.Locale)
	assert.False(t, opts.StoreCompleteXAPI)
	assert.False(t, opts.DebugEnabled)
	assert.Equal(t, "production", opts.LogMode)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("XAPIKATCHU_ADDR", ":9000")
	t.Setenv("XAPIKATCHU_TABLE_PREFIX", "wp_xapikatchu_")
	t.Setenv("XAPIKATCHU_LOCALE", "fr_FR")
	t.Setenv("XAPIKATCHU_STORE_COMPLETE_XAPI", "true")
	t.Setenv("XAPIKATCHU_LOG_MODE", "development")

	opts := FromEnv()
	assert.Equal(t, ":9000", opts.Addr)
	assert.Equal(t, "wp_xapikatchu_", opts.TablePrefix)
	assert.Equal(t, "fr_FR", opts.Locale)
	assert.True(t, opts.StoreCompleteXAPI)
	assert.Equal(t, "development", opts.LogMode)
}

func TestEnvBoolUnparseableFallsBack(t *testing.T) {
	t.Setenv("XAPIKATCHU_DEBUG", "banana")

	opts := FromEnv()
	assert.False(t, opts.DebugEnabled)
}
